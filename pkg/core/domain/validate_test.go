package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTargetURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"https", "https://example.com/x", "https://example.com/x", false},
		{"trimmed", "  http://example.com  ", "http://example.com", false},
		{"empty", "", "", true},
		{"ftp", "ftp://example.com", "", true},
		{"no host", "https://", "", true},
		{"relative", "/just/a/path", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateTargetURL(tt.raw)
			if tt.wantErr {
				var ve *ValidationError
				require.True(t, errors.As(err, &ve))
				assert.Equal(t, "target_url", ve.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateSlug(t *testing.T) {
	valid := []string{"a", "my_link-1", "HEALTHZ", strings.Repeat("x", MaxSlugLength)}
	for _, s := range valid {
		assert.NoError(t, ValidateSlug(s), s)
	}

	invalid := []string{"", "no spaces", "dot.ted", strings.Repeat("x", MaxSlugLength+1), "healthz", "api"}
	for _, s := range invalid {
		err := ValidateSlug(s)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve), s)
		assert.Equal(t, "slug", ve.Field)
	}
}
