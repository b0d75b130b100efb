package detail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/config"
	"github.com/mouseeeeoneeee/adi-msrp-scraper/internal/models"
)

// With onlyMissing set, priced records must pass through untouched and
// their URLs must never be visited. The nil session proves no navigation
// happens: any page access would panic.
func TestEnrichOnlyMissingSkipsPricedRecords(t *testing.T) {
	e := NewExtractor(config.DetailConfig{}, nil)

	records := []models.ProductRecord{
		{URL: "https://example.com/Product/a", Model: "QNV-1", MSRP: "100.00", MSRPRaw: "$100.00"},
		{URL: "https://example.com/Product/b", Model: "QNV-2", MSRP: "250.00", MSRPRaw: "$250.00"},
	}

	out, err := e.Enrich(context.Background(), nil, records, config.BrandConfig{}, true)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, records[0], out[0])
	assert.Equal(t, records[1], out[1])
}

func TestEnrichHonorsCancellation(t *testing.T) {
	e := NewExtractor(config.DetailConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := e.Enrich(ctx, nil, []models.ProductRecord{{URL: "https://example.com/Product/a"}}, config.BrandConfig{}, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)
}

func TestFailureMarker(t *testing.T) {
	assert.Equal(t, "TIMEOUT", failureMarker(errors.New("playwright: Timeout 30000ms exceeded")))
	assert.Equal(t, "ERROR: navigation refused", failureMarker(errors.New("navigation refused")))
}

// gateRecorder stubs the three gate-sequence steps and records the order
// they run in.
type gateRecorder struct {
	steps     []string
	reauthErr error
	reloadErr error
	// results consumed by successive query calls
	queries []string
}

func (g *gateRecorder) reauth() error {
	g.steps = append(g.steps, "reauth")
	return g.reauthErr
}

func (g *gateRecorder) query() (string, bool) {
	g.steps = append(g.steps, "query")
	if len(g.queries) == 0 {
		return "", false
	}
	raw := g.queries[0]
	g.queries = g.queries[1:]
	return raw, raw != ""
}

func (g *gateRecorder) reload() error {
	g.steps = append(g.steps, "reload")
	return g.reloadErr
}

func TestRunGateSequence(t *testing.T) {
	tests := []struct {
		name      string
		rec       gateRecorder
		want      string
		wantErr   string
		wantSteps []string
	}{
		{
			name:      "in-place hit skips the reload",
			rec:       gateRecorder{queries: []string{"$1,234.56"}},
			want:      "$1,234.56",
			wantSteps: []string{"reauth", "query"},
		},
		{
			name:      "miss then exactly one reload then hit",
			rec:       gateRecorder{queries: []string{"", "$820.00"}},
			want:      "$820.00",
			wantSteps: []string{"reauth", "query", "reload", "query"},
		},
		{
			name:      "miss both sides gives up cleanly",
			rec:       gateRecorder{queries: []string{"", ""}},
			want:      "",
			wantSteps: []string{"reauth", "query", "reload", "query"},
		},
		{
			name:      "re-auth failure stops before any query",
			rec:       gateRecorder{reauthErr: errors.New("drawer login: form not found")},
			wantErr:   "gate re-auth failed",
			wantSteps: []string{"reauth"},
		},
		{
			name:      "reload failure stops before the second query",
			rec:       gateRecorder{queries: []string{""}, reloadErr: errors.New("net::ERR_ABORTED")},
			wantErr:   "post-login reload failed",
			wantSteps: []string{"reauth", "query", "reload"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runGateSequence(tt.rec.reauth, tt.rec.query, tt.rec.reload)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantSteps, tt.rec.steps)
		})
	}
}
