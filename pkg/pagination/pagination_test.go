package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		limit   string
		offset  string
		want    Params
		wantErr bool
	}{
		{"defaults", "", "", Params{Limit: DefaultLimit}, false},
		{"explicit", "10", "20", Params{Limit: 10, Offset: 20}, false},
		{"capped", "10000", "", Params{Limit: MaxLimit}, false},
		{"zero limit", "0", "", Params{}, true},
		{"negative offset", "10", "-1", Params{}, true},
		{"garbage", "ten", "", Params{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.limit, tt.offset)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPage(t *testing.T) {
	p := Params{Limit: 2}
	assert.Equal(t, 3, p.FetchLimit())

	n, more := p.NewPage(3)
	assert.Equal(t, 2, n)
	assert.True(t, more)

	n, more = p.NewPage(1)
	assert.Equal(t, 1, n)
	assert.False(t, more)
}
