package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dmoloce/stock-ta-ai/internal/model"
)

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL, "TOKEN", "42", "")
	if err := n.Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload: %v", got)
	}
}

func TestSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := NewTelegramNotifier(srv.URL, "T", "1", "").Send(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestSendPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botT/sendPhoto" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		if r.FormValue("chat_id") != "7" || r.FormValue("caption") != "cap" {
			t.Errorf("unexpected form: %v", r.MultipartForm.Value)
		}
		f, _, err := r.FormFile("photo")
		if err != nil {
			t.Fatal(err)
		}
		f.Close()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL, "T", "7", "")
	if err := n.SendPhoto(context.Background(), []byte("\x89PNG"), "cap"); err != nil {
		t.Fatal(err)
	}
}

func TestRetry(t *testing.T) {
	var calls int32
	err := retry(context.Background(), 2, time.Millisecond, func() error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("expected success on 3rd call, got err=%v calls=%d", err, calls)
	}

	calls = 0
	err = retry(context.Background(), 1, time.Millisecond, func() error {
		atomic.AddInt32(&calls, 1)
		return errors.New("down")
	})
	if err == nil || calls != 2 || !strings.Contains(err.Error(), "all 2 retries exhausted") {
		t.Errorf("unexpected result: err=%v calls=%d", err, calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry(ctx, 3, time.Hour, func() error { return errors.New("down") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTruncateHTML(t *testing.T) {
	if got := truncateHTML("<b>short</b>", 100); got != "<b>short</b>" {
		t.Errorf("got %q", got)
	}
	got := truncateHTML(strings.Repeat("é", 10), 8)
	if len(got) > 8 || !utf8.ValidString(got) || !strings.HasSuffix(got, "...") {
		t.Errorf("bad truncation %q", got)
	}

	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"closes open tag", "<b>" + strings.Repeat("x", 40) + "</b>", 20, "<b>" + strings.Repeat("x", 10) + "...</b>"},
		{"keeps entity whole", strings.Repeat("a", 8) + "&amp;&amp;" + strings.Repeat("b", 20), 18, strings.Repeat("a", 8) + "&amp;..."},
		{"does not cut inside tag", strings.Repeat("a", 10) + "<i>tail text here</i>", 14, strings.Repeat("a", 10) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateHTML(tt.in, tt.limit)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if len(got) > tt.limit {
				t.Errorf("len %d exceeds %d", len(got), tt.limit)
			}
		})
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("one line", 4096); len(got) != 1 || got[0] != "one line" {
		t.Errorf("short text: %q", got)
	}

	line := strings.Repeat("word ", 19) + "end\n" // 98 runes plus newline
	text := strings.Repeat(line, 50)
	chunks := splitMessage(text, 1000)
	if len(chunks) < 5 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	var joined strings.Builder
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 1000 {
			t.Errorf("chunk of %d runes exceeds limit", n)
		}
		if !strings.HasSuffix(c, "end") {
			t.Errorf("chunk not split at a line break: ...%q", c[len(c)-10:])
		}
		joined.WriteString(c + "\n")
	}
	if joined.String() != text {
		t.Error("chunks do not reassemble the original text")
	}

	long := strings.Repeat("x", 9) + "&amp;" + strings.Repeat("y", 20)
	for _, c := range splitMessage(long, 12) {
		if strings.Count(c, "&") != strings.Count(c, ";") {
			t.Errorf("entity split across chunks: %q", c)
		}
	}
}

func TestSend_LongReportIsChunked(t *testing.T) {
	var lengths []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		n := utf8.RuneCountInString(body["text"])
		lengths = append(lengths, n)
		if n > telegramMessageLimit {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: message is too long"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	rec := &model.AnalysisRecord{
		Symbol:   "AAPL",
		Verdict:  model.VerdictBuy,
		Response: strings.Repeat("The 20-day SMA is rising above the lower band.\n", 120),
	}
	report := FormatAnalysisReport(rec)
	if utf8.RuneCountInString(report) <= telegramMessageLimit {
		t.Fatalf("report too short for this test: %d", utf8.RuneCountInString(report))
	}

	n := NewTelegramNotifier(srv.URL, "T", "1", "")
	if err := n.SendWithRetry(context.Background(), report, 1); err != nil {
		t.Fatalf("long report not delivered: %v (lengths %v)", err, lengths)
	}
	if len(lengths) < 2 {
		t.Errorf("expected the report in several messages, got %v", lengths)
	}
}

func TestFormatAnalysisReport(t *testing.T) {
	rec := &model.AnalysisRecord{
		Symbol:     "AAPL",
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Bars:       104,
		LastClose:  192.25,
		Indicators: []string{"SMA20", "VWAP"},
		Analyst:    "ollama:llama3.2-vision",
		Verdict:    model.VerdictBuy,
		Response:   "BUY because price > SMA & <VWAP>",
	}
	msg := FormatAnalysisReport(rec)
	for _, want := range []string{
		"<b>AAPL</b>", "2024-01-01", "2024-06-01", "192.25", "104 bars",
		"SMA20, VWAP", "Recommendation: BUY", "price &gt; SMA &amp; &lt;VWAP&gt;",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory("TSLA", nil); !strings.Contains(got, "TSLA") {
		t.Errorf("empty history: %q", got)
	}
	recs := []model.AnalysisRecord{
		{Symbol: "TSLA", Verdict: model.VerdictSell, LastClose: 200, CreatedAt: time.Now()},
		{Symbol: "TSLA", Verdict: model.VerdictHold, LastClose: 210, CreatedAt: time.Now()},
	}
	got := FormatHistory("TSLA", recs)
	if strings.Index(got, "SELL") > strings.Index(got, "HOLD") {
		t.Errorf("order not preserved:\n%s", got)
	}
}

func TestDispatch(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL, "T", "1", "")
	n.dispatch(context.Background(), "/help", func(context.Context, string) Reply { return Reply{Text: "help"} })
	n.dispatch(context.Background(), "/analyze", func(context.Context, string) Reply {
		return Reply{Text: "report", Photo: []byte("png"), Caption: "cap"}
	})
	n.dispatch(context.Background(), "noop", func(context.Context, string) Reply { return Reply{} })
	want := []string{"/botT/sendMessage", "/botT/sendPhoto", "/botT/sendMessage"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected calls: %v", paths)
	}
}

func TestGetUpdates_OutlastsServerHold(t *testing.T) {
	hold := 1300 * time.Millisecond
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("timeout") != "1" {
			t.Errorf("unexpected timeout param %q", r.URL.Query().Get("timeout"))
		}
		time.Sleep(hold)
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":"/help","chat":{"id":1}}}]}`))
	}))
	defer srv.Close()

	n := NewTelegramNotifier(srv.URL, "T", "1", "")
	n.SetPollTimeout(time.Second)
	updates, err := n.getUpdates(context.Background(), 0)
	if err != nil {
		t.Fatalf("idle long poll failed: %v", err)
	}
	if len(updates) != 1 || updates[0].UpdateID != 7 {
		t.Errorf("unexpected updates %+v", updates)
	}
	if n.poll.GetClient().Timeout <= n.pollTimeout {
		t.Errorf("client timeout %s must exceed poll timeout %s", n.poll.GetClient().Timeout, n.pollTimeout)
	}
}

func TestNewTelegramNotifier_PollClientTimeout(t *testing.T) {
	n := NewTelegramNotifier("", "T", "1", "")
	if got := n.poll.GetClient().Timeout; got != defaultPollTimeout+pollGrace {
		t.Errorf("poll client timeout = %s", got)
	}
	if int(n.pollTimeout/time.Second) != 30 {
		t.Errorf("poll timeout = %s", n.pollTimeout)
	}
}
