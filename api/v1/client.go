package v1

// Client talks to the remote authority on behalf of one device.
type Client struct {
	Transport *Transport
	Sync      *SyncEndpoint
	Media     *MediaEndpoint
}

// NewClient initializes the API client
func NewClient(baseURL string, token string) *Client {
	t := NewTransport(baseURL, token)
	return &Client{
		Transport: t,
		Sync:      &SyncEndpoint{transport: t},
		Media:     &MediaEndpoint{transport: t},
	}
}
