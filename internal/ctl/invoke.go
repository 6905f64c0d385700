package ctl

import (
	"context"
	"fmt"
	"os"
	"time"

	"sqlcoderd/internal/common/fsutil"
	"sqlcoderd/internal/prompt"
	"sqlcoderd/pkg/types"
)

// exampleQuestion is used by `run` when no question is given.
const exampleQuestion = "Do we get more revenue from customers in New York compared to customers in San Francisco? Give me the total revenue for each city, and the difference between the two."

type invokeOpts struct {
	App          string
	Question     string
	MetadataFile string
	Stream       bool
	SQLOnly      bool
	MaxNewTokens int
}

func invokeApp(cfg *Config, opts invokeOpts) error {
	if opts.Stream && opts.SQLOnly {
		return fmt.Errorf("--stream and --sql-only cannot be combined")
	}
	deployments, _, err := cfg.stores()
	if err != nil {
		return err
	}
	dep, ok, err := deployments.Get(opts.App)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("app %q is not deployed", opts.App)
	}

	metadata := ""
	if opts.MetadataFile != "" {
		path, err := fsutil.ExpandHome(opts.MetadataFile)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		metadata = string(b)
	}

	req := types.GenerateRequest{
		Question:     opts.Question,
		Metadata:     metadata,
		MaxNewTokens: opts.MaxNewTokens,
	}
	c := NewClient(dep.Endpoint)
	start := time.Now()

	if opts.Stream {
		_, err := c.GenerateStream(context.Background(), req, func(token string) error {
			fmt.Print(token)
			return nil
		})
		fmt.Println()
		if err != nil {
			return err
		}
		debug("generated in %s", time.Since(start).Round(time.Millisecond))
		return nil
	}

	resp, err := c.Generate(context.Background(), req)
	if err != nil {
		return err
	}
	text := resp.GeneratedText
	if opts.SQLOnly {
		text = prompt.TrimFence(text)
	}
	fmt.Println(text)
	debug("model=%s duration_ms=%d", resp.Model, resp.DurationMs)
	return nil
}

func runExample(cfg *Config, question string) error {
	if question == "" {
		question = exampleQuestion
	}
	app, err := resolveApp(cfg, "")
	if err != nil {
		return err
	}
	info("invoking %s", app)
	return fnInvoke(cfg, invokeOpts{App: app, Question: question})
}
