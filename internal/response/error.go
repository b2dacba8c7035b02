package response

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/Brownie44l1/tinyserver/internal/headers"
)

// ClientError writes a complete HTML error response. The body names the
// status, both messages and the offending cause. It is sent even for HEAD.
// Only the cause, which comes from the client, is escaped.
func (w *Writer) ClientError(cause string, code StatusCode, short, long string) error {
	body := errorBody(cause, code, short, long)

	if err := w.writeStatus(code, short); err != nil {
		return err
	}

	h := headers.NewHeaders()
	h.Set("Content-Type", "text/html")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	if err := w.WriteHeaders(h); err != nil {
		return err
	}

	return w.WriteBody([]byte(body))
}

func errorBody(cause string, code StatusCode, short, long string) string {
	var b strings.Builder
	b.WriteString("<html><title>Tiny Error</title>")
	b.WriteString("<body bgcolor=\"ffffff\">\r\n")
	fmt.Fprintf(&b, "%d: %s\r\n", code, short)
	fmt.Fprintf(&b, "<p>%s: %s\r\n", long, html.EscapeString(cause))
	b.WriteString("<hr><em>The Tiny Web server</em>\r\n")
	b.WriteString("</body></html>\r\n")
	return b.String()
}
