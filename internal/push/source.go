package push

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/matheus3301/wppchat/internal/config"
)

// NewSource picks the transport configured for the profile. base is the
// REST server root; header carries the credentials.
func NewSource(p config.Push, base *url.URL, header http.Header) (Source, error) {
	u := *base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(p.Path, "/")
	u.RawPath = ""

	switch p.Transport {
	case "", config.TransportSSE:
		return &SSESource{URL: u.String(), Header: header, Client: &http.Client{}}, nil
	case config.TransportWebSocket:
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		default:
			u.Scheme = "ws"
		}
		return &WebSocketSource{URL: u.String(), Header: header}, nil
	}
	return nil, fmt.Errorf("unknown push transport %q", p.Transport)
}
