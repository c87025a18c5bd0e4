package notify

import "strings"

// Window is an open admin page.
type Window struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

const (
	ClickFocus = "focus"
	ClickOpen  = "open"
	ClickNone  = "none"
)

// ClickResult tells the caller what to do with a notification click.
type ClickResult struct {
	Kind     string `json:"kind"`
	WindowID string `json:"window_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

// RouteClick focuses the first window showing the admin page, or opens the
// orders page when there is none. Only the view action (or a click on the
// notification body, which has no action) does anything.
func RouteClick(action string, windows []Window) ClickResult {
	if action != "" && action != ActionView {
		return ClickResult{Kind: ClickNone}
	}
	for _, w := range windows {
		if strings.Contains(w.URL, AdminPath) {
			return ClickResult{Kind: ClickFocus, WindowID: w.ID, URL: w.URL}
		}
	}
	return ClickResult{Kind: ClickOpen, URL: OrdersURL}
}
