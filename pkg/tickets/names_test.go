package tickets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeChannelName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "already valid", in: "midtier-0001", want: "midtier-0001"},
		{name: "spaces and case", in: "  Trade With Bob ", want: "trade-with-bob"},
		{name: "symbols collapse", in: "a!!b__c", want: "a-b-c"},
		{name: "only symbols", in: "!!!", want: ""},
		{name: "empty", in: "", want: ""},
		{name: "unicode dropped", in: "héllo", want: "h-llo"},
		{name: "truncated", in: strings.Repeat("a", 150), want: strings.Repeat("a", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeChannelName(tt.in))
		})
	}
}
