package geocaching

import (
	"fmt"
	"testing"

	"geoscrape/lib/session"

	"github.com/stretchr/testify/require"
)

func TestSessionErrorAliases(t *testing.T) {
	// the aliases are the session sentinels themselves, so a wrapped
	// error matches through either package
	pairs := []struct{ here, there error }{
		{ErrUsage, session.ErrUsage},
		{ErrLogin, session.ErrLogin},
		{ErrTimeout, session.ErrTimeout},
		{ErrHTTP, session.ErrHTTP},
	}
	for _, p := range pairs {
		require.Same(t, p.there, p.here)
		wrapped := fmt.Errorf("%w: detail", p.there)
		require.ErrorIs(t, wrapped, p.here)
	}
}
