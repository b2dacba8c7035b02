// Command adder is a CGI program that adds two numbers. It reads
// first=N&second=M from QUERY_STRING and writes its own headers and an HTML
// body to standard output.
package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
)

func main() {
	render(os.Stdout, os.Getenv("QUERY_STRING"), os.Getenv("REQUEST_METHOD"))
}

func render(w io.Writer, query, method string) {
	first, second := operands(query)

	var body strings.Builder
	body.WriteString("Welcome to add.com: THE Internet addition portal.\r\n<p>")
	fmt.Fprintf(&body, "The answer is: %d + %d = %d\r\n<p>", first, second, first+second)
	body.WriteString("Thanks for visiting!\r\n")

	fmt.Fprint(w, "Connection: close\r\n")
	fmt.Fprintf(w, "Content-Length: %d\r\n", body.Len())
	fmt.Fprint(w, "Content-Type: text/html\r\n\r\n")

	if !strings.EqualFold(method, "HEAD") {
		io.WriteString(w, body.String())
	}
}

// operands extracts first and second; missing or non-numeric values count
// as zero.
func operands(query string) (int, int) {
	values, _ := url.ParseQuery(query)
	first, _ := strconv.Atoi(values.Get("first"))
	second, _ := strconv.Atoi(values.Get("second"))
	return first, second
}
