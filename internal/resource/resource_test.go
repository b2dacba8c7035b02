package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStatic(t *testing.T) {
	rv := NewResolver("", "", "")

	res, err := rv.Resolve("/godzilla.gif")
	require.NoError(t, err)
	assert.Equal(t, Static, res.Kind)
	assert.Equal(t, "./godzilla.gif", res.Filename)
	assert.Equal(t, "", res.Args)
}

func TestResolveDefaultDocument(t *testing.T) {
	rv := NewResolver("/srv/www", "home.html", "cgi-bin")

	res, err := rv.Resolve("/")
	require.NoError(t, err)
	assert.Equal(t, "/srv/www/home.html", res.Filename)

	res, err = rv.Resolve("/docs/")
	require.NoError(t, err)
	assert.Equal(t, "/srv/www/docs/home.html", res.Filename)
	assert.Equal(t, Static, res.Kind)
}

func TestResolveDynamic(t *testing.T) {
	rv := NewResolver(".", "", "")

	res, err := rv.Resolve("/cgi-bin/adder?first=3&second=4")
	require.NoError(t, err)
	assert.Equal(t, Dynamic, res.Kind)
	assert.Equal(t, "./cgi-bin/adder", res.Filename)
	assert.Equal(t, "first=3&second=4", res.Args)
	assert.NotContains(t, res.Filename, "?")

	// Only the first '?' splits
	res, err = rv.Resolve("/cgi-bin/echo?a=1?b=2")
	require.NoError(t, err)
	assert.Equal(t, "./cgi-bin/echo", res.Filename)
	assert.Equal(t, "a=1?b=2", res.Args)

	// No query means empty arguments
	res, err = rv.Resolve("/cgi-bin/adder")
	require.NoError(t, err)
	assert.Equal(t, "", res.Args)
}

func TestClassificationIgnoresExtension(t *testing.T) {
	rv := NewResolver(".", "", "")

	for _, target := range []string{"/cgi-bin/page.html", "/cgi-bin/image.png", "/x/cgi-bin/run"} {
		res, err := rv.Resolve(target)
		require.NoError(t, err)
		assert.Equal(t, Dynamic, res.Kind, target)
	}

	for _, target := range []string{"/bin/script.cgi", "/index.html", "/a?cgi-bin"} {
		res, err := rv.Resolve(target)
		require.NoError(t, err)
		assert.Equal(t, Static, res.Kind, target)
	}
}

func TestStaticKeepsQueryInFilename(t *testing.T) {
	rv := NewResolver(".", "", "")

	res, err := rv.Resolve("/index.html?v=2")
	require.NoError(t, err)
	assert.Equal(t, Static, res.Kind)
	assert.Equal(t, "./index.html?v=2", res.Filename)
	assert.Equal(t, "/index.html", res.Path)
	assert.Equal(t, "", res.Args)

	// dot segments after the '?' are refused too
	_, err = rv.Resolve("/x?/../../etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestResolveRelativeTarget(t *testing.T) {
	rv := NewResolver(".", "", "")

	res, err := rv.Resolve("index.html")
	require.NoError(t, err)
	assert.Equal(t, "./index.html", res.Filename)
}

func TestResolveRefusesDotDot(t *testing.T) {
	rv := NewResolver(".", "", "")

	for _, target := range []string{"/../etc/passwd", "/a/../../b", "/cgi-bin/../../sh", "/.."} {
		_, err := rv.Resolve(target)
		assert.ErrorIs(t, err, ErrOutsideRoot, target)
	}

	// Dots inside a name are fine
	res, err := rv.Resolve("/notes..txt")
	require.NoError(t, err)
	assert.Equal(t, "./notes..txt", res.Filename)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "static", Static.String())
	assert.Equal(t, "dynamic", Dynamic.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
}
