package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/iacob/internal/common"
)

type mockWhatsApp struct {
	to, body string
	err      error
}

func (m *mockWhatsApp) SendMessage(_ context.Context, to, body string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.to, m.body = to, body
	return "SM123", nil
}

func TestFormatReport_BogotaTimestamp(t *testing.T) {
	s := NewService(nil, "", "", common.NewSilentLogger())
	s.now = func() time.Time { return time.Date(2026, 10, 15, 19, 30, 5, 0, time.UTC) }

	got := s.FormatReport("Bought 2 AAPL")
	assert.Equal(t, "🤖 *Reporte de Trading ⏰ 15/10/2026, 14:30:05*\n\nBought 2 AAPL", got)
}

func TestSendReport(t *testing.T) {
	wa := &mockWhatsApp{}
	s := NewService(wa, "+573001112233", "UTC", common.NewSilentLogger())

	assert.True(t, s.SendReport(context.Background(), "done"))
	assert.Equal(t, "+573001112233", wa.to)
	assert.True(t, strings.HasSuffix(wa.body, "\n\ndone"))
}

func TestSendReport_NotConfigured(t *testing.T) {
	s := NewService(nil, "+573001112233", "", common.NewSilentLogger())
	assert.False(t, s.SendReport(context.Background(), "done"))

	s = NewService(&mockWhatsApp{}, "", "", common.NewSilentLogger())
	assert.False(t, s.SendReport(context.Background(), "done"))
}

func TestSendReport_DeliveryFailure(t *testing.T) {
	s := NewService(&mockWhatsApp{err: errors.New("21211 invalid to")}, "+1", "", common.NewSilentLogger())
	assert.False(t, s.SendReport(context.Background(), "done"))
}
