package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeTitle(t *testing.T) {
	assert.Equal(t, "Hello & bye", SanitizeTitle("  <script>x</script><b>Hello</b> &amp; bye ", 0))
	assert.Equal(t, "héll", SanitizeTitle("héllo", 4))
	assert.Empty(t, SanitizeTitle("<img src=x onerror=alert(1)>", 10))
}
