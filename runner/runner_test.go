package runner_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/llmpulse/llmpulse/pkg/llm"
	"github.com/llmpulse/llmpulse/pkg/metrics"
	"github.com/llmpulse/llmpulse/runner"
)

// chat-completions endpoint that fails any prompt containing "boom".
func newChatServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)

		if len(body.Messages) > 0 && strings.Contains(body.Messages[0].Content, "boom") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"pong"}}],"usage":{"prompt_tokens":4,"completion_tokens":2,"total_tokens":6}}`))
	}))
}

var _ = Describe("Runner", func() {
	var (
		server *httptest.Server
		r      *runner.Runner
	)

	BeforeEach(func() {
		server = newChatServer()
		client := llm.NewClient(llm.Config{
			Endpoint: server.URL + "/v1/chat/completions",
			APIKey:   "test-key",
			Model:    "gpt-4o",
		}, zap.NewNop())
		r = runner.New(client, zap.NewNop())
	})

	AfterEach(func() {
		server.Close()
	})

	It("executes prompts in order, repeated per run", func() {
		results, summary, err := r.Run(context.Background(), runner.Config{
			Prompts: []string{"alpha", "beta"},
			Runs:    2,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		Expect(results[0].Prompt).To(Equal("alpha"))
		Expect(results[1].Prompt).To(Equal("alpha"))
		Expect(results[2].Prompt).To(Equal("beta"))
		Expect(results[3].Prompt).To(Equal("beta"))
		Expect(summary.TotalRequests).To(Equal(4))
		Expect(summary.Successful).To(Equal(4))
		Expect(summary.Failed).To(BeZero())
	})

	It("records a failure without aborting the batch", func() {
		results, summary, err := r.Run(context.Background(), runner.Config{
			Prompts: []string{"boom", "fine"},
			Runs:    1,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Status).To(Equal(metrics.StatusError))
		Expect(results[0].ErrorMessage).To(ContainSubstring("server error"))
		Expect(results[0].Timing).To(BeNil())
		Expect(results[1].Status).To(Equal(metrics.StatusSuccess))
		Expect(summary.Failed).To(Equal(1))
		Expect(summary.Successful).To(Equal(1))
	})

	It("derives tokens per second for successful calls", func() {
		results, _, err := r.Run(context.Background(), runner.Config{
			Prompts: []string{"hello"},
			Runs:    1,
		})

		Expect(err).NotTo(HaveOccurred())
		res := results[0]
		Expect(res.Tokens.CompletionTokens).To(Equal(2))
		Expect(res.TPS).NotTo(BeNil())
		Expect(*res.TPS).To(BeNumerically(">", 0))
	})

	It("reports progress after every call", func() {
		var seen []int
		r.OnProgress(func(done, total int, label string) {
			seen = append(seen, done)
			Expect(total).To(Equal(3))
			Expect(label).NotTo(BeEmpty())
		})

		_, _, err := r.Run(context.Background(), runner.Config{
			Prompts: []string{"a", "b", "c"},
			Runs:    1,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{1, 2, 3}))
	})

	It("stops early when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, _, err := r.Run(ctx, runner.Config{
			Prompts: []string{"a"},
			Runs:    1,
		})

		Expect(err).To(MatchError(context.Canceled))
		Expect(results).To(BeEmpty())
	})
})

var _ = Describe("Report", func() {
	It("round-trips through JSON with summary and results", func() {
		tps := 20.0
		results := []metrics.TestResult{
			{
				Prompt: "hi",
				Status: metrics.StatusSuccess,
				Timing: &metrics.Timing{TotalLatencyMS: 100},
				Tokens: &metrics.Tokens{CompletionTokens: 2, TotalTokens: 2},
				TPS:    &tps,
			},
		}
		report := runner.NewReport(results, metrics.Summarize(results))

		data, err := report.JSON()
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]any
		Expect(json.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("summary"))
		Expect(decoded).To(HaveKey("results"))
	})

	It("omits absent optional fields from the JSON", func() {
		results := []metrics.TestResult{
			{Prompt: "x", Status: metrics.StatusError, ErrorMessage: "rate limited: too many requests"},
		}
		report := runner.NewReport(results, metrics.Summarize(results))

		data, err := report.JSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("ttft_ms"))
		Expect(string(data)).NotTo(ContainSubstring("tokens_per_second"))
	})

	It("writes the report to a file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "results.json")

		report := runner.NewReport(nil, metrics.Summarize(nil))
		Expect(report.WriteFile(path)).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"total_requests": 0`))
	})
})
