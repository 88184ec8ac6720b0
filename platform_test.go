package modloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	aliases := map[string]string{
		"Subnautica": "a",
		"BelowZero":  "b",
		"Broken":     "nowhere",
	}

	tests := []struct {
		tag     string
		want    Platform
		wantErr bool
	}{
		{tag: "", want: PlatformBoth},
		{tag: "a", want: PlatformA},
		{tag: "PlatformB", want: PlatformB},
		{tag: "BOTH", want: PlatformBoth},
		{tag: "none", want: PlatformNone},
		{tag: "subnautica", want: PlatformA},
		{tag: "BelowZero", want: PlatformB},
		{tag: "broken", wantErr: true},
		{tag: "unknown-game", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParsePlatform(tt.tag, aliases)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownPlatform)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformIntersects(t *testing.T) {
	assert.True(t, PlatformA.Intersects(PlatformA))
	assert.True(t, PlatformBoth.Intersects(PlatformB))
	assert.True(t, PlatformA.Intersects(PlatformBoth))
	assert.False(t, PlatformA.Intersects(PlatformB))
	assert.False(t, PlatformNone.Intersects(PlatformBoth))
}

func TestPlatformString(t *testing.T) {
	assert.Equal(t, "none", PlatformNone.String())
	assert.Equal(t, "a", PlatformA.String())
	assert.Equal(t, "b", PlatformB.String())
	assert.Equal(t, "both", PlatformBoth.String())
	assert.Equal(t, "platform(8)", Platform(8).String())
}
