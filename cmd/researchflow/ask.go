package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/BaSui01/researchflow/stream"
	"github.com/BaSui01/researchflow/topic"
)

// =============================================================================
// 💬 ask 命令
// =============================================================================

// askOptions 是 ask 子命令解析后的参数
type askOptions struct {
	configPath  string
	topic       string
	model       string
	temperature float64 // <0 表示使用默认值
	server      string
	verbose     bool
	query       string
}

func parseAskArgs(args []string, stderr io.Writer) (askOptions, error) {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts askOptions
	fs.StringVar(&opts.configPath, "config", "", "Path to config file")
	fs.StringVar(&opts.topic, "topic", "", "Topic key; skips routing")
	fs.StringVar(&opts.model, "model", "", "Model name")
	fs.Float64Var(&opts.temperature, "temperature", -1, "Sampling temperature (0-2)")
	fs.StringVar(&opts.server, "server", "", "Base URL of a running researchflow server")
	fs.BoolVar(&opts.verbose, "verbose", false, "Print service logs to stderr")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.query = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if opts.query == "" {
		return opts, errors.New("a research question is required")
	}
	if opts.temperature > 2 {
		return opts, errors.New("temperature must be between 0 and 2")
	}
	return opts, nil
}

// runAsk 运行一次研究：进度写入 stderr，最终答案写入 stdout
func runAsk(args []string, stdout, stderr io.Writer) int {
	opts, err := parseAskArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "ask: %v\n", err)
		}
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var q eventSource
	if opts.server != "" {
		q, err = streamFromServer(ctx, &http.Client{}, opts)
	} else {
		q, err = streamLocally(ctx, opts)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ask: %v\n", err)
		return 1
	}
	if !printEvents(ctx, q, stdout, stderr) {
		fmt.Fprintln(stderr, "ask: stream ended without a final answer")
		return 1
	}
	return 0
}

// eventSource 按顺序产出事件，第二个返回值为 false 表示结束
type eventSource func(ctx context.Context) (stream.Event, bool)

// printEvents 打印事件直到 [DONE]，返回是否收到 final
func printEvents(ctx context.Context, next eventSource, stdout, stderr io.Writer) bool {
	gotFinal := false
	for {
		ev, ok := next(ctx)
		if !ok || ev.IsDone() {
			return gotFinal
		}
		switch ev.Kind {
		case stream.KindTopic:
			fmt.Fprintf(stderr, "🧭 Topic: %s (%s)\n", ev.TopicLabel, ev.TopicKey)
		case stream.KindLog:
			fmt.Fprintln(stderr, ev.Message)
		case stream.KindFinal:
			gotFinal = true
			fmt.Fprintln(stdout, ev.Reply)
		}
	}
}

// streamLocally 在进程内装配组件并启动一次流式运行
func streamLocally(ctx context.Context, opts askOptions) (eventSource, error) {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if !opts.verbose {
		cfg.Log.Level = "error"
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	logger := initLogger(cfg.Log)

	a, err := buildApp(ctx, cfg, nil, logger)
	if err != nil {
		return nil, err
	}

	var key, label string
	if opts.topic != "" {
		c, err := a.registry.Resolve(opts.topic)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		key, label = c.Key, c.Label
	} else {
		key, label = a.router.Classify(ctx, opts.query)
	}

	req := stream.Request{
		Engine:      a.engines[key],
		TopicKey:    key,
		TopicLabel:  label,
		Query:       opts.query,
		Model:       cfg.LLM.DefaultModel,
		Temperature: cfg.LLM.Temperature,
	}
	if opts.model != "" {
		req.Model = opts.model
	}
	if opts.temperature >= 0 {
		req.Temperature = opts.temperature
	}

	q := a.executor.Start(ctx, req)
	return func(ctx context.Context) (stream.Event, bool) {
		ev, ok := q.Next(ctx)
		if !ok || ev.IsDone() {
			_ = a.Close()
			_ = logger.Sync()
		}
		return ev, ok
	}, nil
}

// streamFromServer 调用服务端的 SSE 接口
func streamFromServer(ctx context.Context, client *http.Client, opts askOptions) (eventSource, error) {
	params := url.Values{}
	params.Set("query", opts.query)
	if opts.topic != "" {
		params.Set("topic", opts.topic)
	}
	if opts.model != "" {
		params.Set("model", opts.model)
	}
	if opts.temperature >= 0 {
		params.Set("temperature", strconv.FormatFloat(opts.temperature, 'f', -1, 64))
	}
	target := strings.TrimRight(opts.server, "/") + "/api/v1/chat/stream?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	return func(context.Context) (stream.Event, bool) {
		for scanner.Scan() {
			payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			ev, err := stream.ParseWire([]byte(payload))
			if err != nil {
				continue
			}
			if ev.IsDone() {
				resp.Body.Close()
			}
			return ev, true
		}
		resp.Body.Close()
		return stream.Event{}, false
	}, nil
}

// =============================================================================
// 🗂️ topics 命令
// =============================================================================

func runTopics(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("topics", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbose := fs.Bool("v", false, "Show topic descriptions")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	registry := topic.Default(topic.Deps{})
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, c := range registry.Configs() {
		if *verbose {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Key, c.Label, c.Domain, c.Description)
		} else {
			fmt.Fprintf(tw, "%s\t%s\n", c.Key, c.Label)
		}
	}
	return 0
}
