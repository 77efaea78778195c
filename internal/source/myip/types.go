package myip

// Response is the body returned by the IP echo service.
type Response struct {
	IP      string `json:"ip"`
	Country string `json:"country,omitempty"`
	CC      string `json:"cc,omitempty"`
}
