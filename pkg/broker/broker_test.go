package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispositionString(t *testing.T) {
	tests := []struct {
		d    Disposition
		want string
	}{
		{Ack, "ack"},
		{Nak, "nak"},
		{AckWarn, "ack_warn"},
		{Disposition(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.d.String())
	}
}
