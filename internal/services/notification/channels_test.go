package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/models"
	"github.com/ternarybob/stockpulse/internal/services/mailer"
	"golang.org/x/time/rate"
)

type recordingChannel struct {
	name     string
	err      error
	subjects []string
	reports  []string
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(_ context.Context, subject, markdown string) error {
	c.subjects = append(c.subjects, subject)
	c.reports = append(c.reports, markdown)
	return c.err
}

func TestNotify_DeliversToAllChannels(t *testing.T) {
	ok := &recordingChannel{name: "ok"}
	failing := &recordingChannel{name: "broken", err: errors.New("boom")}
	after := &recordingChannel{name: "after"}

	svc := NewService(arbor.NewLogger(), ok, failing, after)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 18, 0, 0, 0, time.Local) }

	results := []*models.AnalysisResult{{Code: "600519", Name: "贵州茅台", OperationAdvice: "持有"}}
	report, err := svc.Notify(context.Background(), results)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.Contains(t, report, "贵州茅台")
	require.Len(t, after.reports, 1)
	assert.Equal(t, report, ok.reports[0])
	assert.Equal(t, "2026-03-02 股票分析决策仪表盘", ok.subjects[0])
	assert.Equal(t, []string{"ok", "broken", "after"}, svc.Channels())
}

func TestNotify_MalformedReportNotSent(t *testing.T) {
	ch := &recordingChannel{name: "ok"}
	svc := NewService(arbor.NewLogger(), ch)

	_, err := svc.Notify(context.Background(), []*models.AnalysisResult{nil})
	require.ErrorIs(t, err, ErrMalformedDashboard)
	assert.Empty(t, ch.reports)
}

func TestFileChannel_Send(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	ch := NewFileChannel(dir, arbor.NewLogger())
	ch.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local) }

	require.NoError(t, ch.Send(context.Background(), "subject", "# report"))

	data, err := os.ReadFile(filepath.Join(dir, "report_20260302.md"))
	require.NoError(t, err)
	assert.Equal(t, "# report", string(data))
	assert.Equal(t, "file", ch.Name())
}

func TestWebhookChannel_SendsChunks(t *testing.T) {
	var mu sync.Mutex
	var received []WebhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p WebhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, 64, time.Second, arbor.NewLogger())
	ch.limiter = rate.NewLimiter(rate.Inf, 1)

	report := strings.Repeat("line of report text\n", 10)
	require.NoError(t, ch.Send(context.Background(), "日报", report))

	mu.Lock()
	defer mu.Unlock()
	require.Greater(t, len(received), 1)
	var rebuilt strings.Builder
	for i, p := range received {
		assert.Equal(t, i+1, p.Part)
		assert.Equal(t, len(received), p.Total)
		assert.True(t, strings.HasPrefix(p.Title, "日报 ("))
		rebuilt.WriteString(p.Text)
	}
	assert.Equal(t, report, rebuilt.String())
}

func TestWebhookChannel_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, 0, 0, arbor.NewLogger())
	err := ch.Send(context.Background(), "s", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestEmailChannel_ToHTML(t *testing.T) {
	m := mailer.NewService(common.EmailConfig{}, arbor.NewLogger())
	ch := NewEmailChannel(m, []string{"a@example.com"}, arbor.NewLogger())

	out := ch.ToHTML("# 标题\n\n| 股票 | 代码 |\n| --- | --- |\n| 贵州茅台 | 600519 |\n\n**量能**: 量比 1.2")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<strong>量能</strong>")
	assert.Equal(t, "", ch.ToHTML(""))

	err := ch.Send(context.Background(), "s", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP is not configured")
}
