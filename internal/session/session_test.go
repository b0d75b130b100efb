package session

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/config"
)

// Credentials are checked before any browser launches.
func TestAcquireWithoutCredentials(t *testing.T) {
	m := NewManager(config.SessionConfig{}, config.CredentialsConfig{}, config.BrowserConfig{}, nil)

	_, err := m.Acquire(context.Background(), true)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

// A drawer login whose probe stays negative must leave the on-disk blob
// alone. The nil browser proves no write happens: PersistState would
// panic if it were reached.
func TestPersistSkippedWhenProbeNegative(t *testing.T) {
	s := &Session{statePath: ".auth/unused.json", logger: slog.Default()}
	assert.NoError(t, s.persistIfAuthenticated(false))
}

func TestProbeSignalsAreIndependent(t *testing.T) {
	// The probe is OR-combined on purpose: any single signal may be
	// missing depending on the page template.
	assert.Len(t, loggedInProbes, 3)
	for _, sel := range loggedInProbes {
		assert.NotEmpty(t, sel)
	}
}
