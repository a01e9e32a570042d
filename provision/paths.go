package provision

import (
	"strings"

	"github.com/axent-pl/drmkit/media"
)

const playerBaseURL = "https://ampdemo.azureedge.net/"

// SelectDASHPath builds https://{host}{path} from the first path of the
// first DASH entry.
func SelectDASHPath(hostName string, paths []media.StreamingPath) (string, bool) {
	for _, p := range paths {
		if p.StreamingProtocol != media.ProtocolDash || len(p.Paths) == 0 {
			continue
		}
		// paths carry manifest arguments such as (format=mpd-time-cmaf) that must stay unescaped
		path := p.Paths[0]
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "https://" + hostName + path, true
	}
	return "", false
}

// PlayerURL points the demo player at a DASH manifest with both DRM
// systems enabled.
func PlayerURL(dashURL string) string {
	return playerBaseURL + "?url=" + dashURL + "&playready=true&widevine=true"
}
