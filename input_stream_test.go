package streamplay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeURL_StripsListenParamsForRTMP(t *testing.T) {
	out, err := sanitizeURL("rtmp://host/app/stream?listen=1&listen_timeout=5&other=keep")
	require.NoError(t, err)
	require.Contains(t, out, "other=keep")
	require.NotContains(t, out, "listen=1")
	require.NotContains(t, out, "listen_timeout=5")
}

func TestSanitizeURL_LeavesRTSPUntouched(t *testing.T) {
	in := "rtsp://host/stream?listen=1"
	out, err := sanitizeURL(in)
	require.NoError(t, err)
	require.Contains(t, out, "listen=1")
}

func TestSanitizeURL_RejectsMalformedURL(t *testing.T) {
	_, err := sanitizeURL("rtsp://host/%zz")
	require.Error(t, err)
}

func TestNewReisenInputStream_RejectsMalformedURL(t *testing.T) {
	_, err := NewReisenInputStream("rtsp://host/%zz")
	require.ErrorIs(t, err, ErrStreamInfoUnavailable)
}
