package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{
			name:      "android phone",
			userAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Mobile Safari/537.36",
			want:      DeviceMobile,
		},
		{
			name:      "iphone",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
			want:      DeviceMobile,
		},
		{
			name:      "ipad counts as mobile",
			userAgent: "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15",
			want:      DeviceMobile,
		},
		{
			name:      "android tablet matches mobile marker first",
			userAgent: "Mozilla/5.0 (Linux; Android 13; SM-X710) Tablet Safari/537.36 Mobile",
			want:      DeviceMobile,
		},
		{
			name:      "plain tablet",
			userAgent: "Mozilla/5.0 (Tablet; rv:68.0) Gecko/68.0 Firefox/68.0",
			want:      DeviceTablet,
		},
		{
			name:      "desktop browser",
			userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
			want:      DeviceDesktop,
		},
		{
			name:      "uppercase markers still match",
			userAgent: "SOMETHING IPHONE",
			want:      DeviceMobile,
		},
		{
			name:      "empty user agent",
			userAgent: "",
			want:      DeviceDesktop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDevice(tt.userAgent))
		})
	}
}
