// Command tracemcp serves trace statistics over the Model Context Protocol.
package main

import (
	"context"
	"math"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"loov.dev/tracestat/config"
	"loov.dev/tracestat/trace"
)

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if os.Getenv("TRACESTAT_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}

	s := server.NewMCPServer(
		"tracestat",
		"1.0.0",
		server.WithLogging(),
	)
	register(s, newService(log, cfg))

	if err := server.ServeStdio(s); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

type handler func(ctx context.Context, request mcp.CallToolRequest) (string, error)

func result(fn handler) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := fn(ctx, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// window reads the optional from and to arguments.
func window(request mcp.CallToolRequest) trace.TimeRange {
	return trace.TimeRange{
		Start:  trace.Time(request.GetFloat("from", math.Inf(-1))),
		Finish: trace.Time(request.GetFloat("to", math.Inf(1))),
	}
}

func register(s *server.MCPServer, svc *service) {
	filePath := mcp.WithString("file_path",
		mcp.Required(),
		mcp.Description("Path to the trace file"),
	)
	lineName := mcp.WithString("line",
		mcp.Required(),
		mcp.Description("Name of the line, as shown by list_lines"),
	)
	from := mcp.WithNumber("from",
		mcp.Description("Window start in seconds (default: trace start)"),
	)
	to := mcp.WithNumber("to",
		mcp.Description("Window end in seconds (default: trace end)"),
	)

	s.AddTool(mcp.NewTool("load_trace",
		mcp.WithDescription("Load a trace file (trace event format, Jaeger JSON or monkit spans) for analysis"),
		filePath,
		mcp.WithString("format",
			mcp.Description("tef, jaeger, monkit or auto (default: auto)"),
		),
	), result(func(ctx context.Context, request mcp.CallToolRequest) (string, error) {
		path, err := request.RequireString("file_path")
		if err != nil {
			return "", err
		}
		return svc.load(path, request.GetString("format", ""))
	}))

	s.AddTool(mcp.NewTool("list_lines",
		mcp.WithDescription("List every task, interrupt, counter and other line of a loaded trace"),
		filePath,
	), result(func(ctx context.Context, request mcp.CallToolRequest) (string, error) {
		path, err := request.RequireString("file_path")
		if err != nil {
			return "", err
		}
		return svc.lines(path)
	}))

	s.AddTool(mcp.NewTool("line_events",
		mcp.WithDescription("Dump the finalized records of one line, optionally limited to a time range"),
		filePath, lineName, from, to,
	), result(func(ctx context.Context, request mcp.CallToolRequest) (string, error) {
		path, err := request.RequireString("file_path")
		if err != nil {
			return "", err
		}
		name, err := request.RequireString("line")
		if err != nil {
			return "", err
		}
		w := window(request)
		return svc.events(path, name, w.Start, w.Finish)
	}))

	s.AddTool(mcp.NewTool("task_statistics",
		mcp.WithDescription("Compute inclusive and exclusive execution time, interrupts and counter usage of one task over a window"),
		filePath, lineName, from, to,
	), result(func(ctx context.Context, request mcp.CallToolRequest) (string, error) {
		path, err := request.RequireString("file_path")
		if err != nil {
			return "", err
		}
		name, err := request.RequireString("line")
		if err != nil {
			return "", err
		}
		return svc.taskStatistics(path, name, window(request))
	}))

	s.AddTool(mcp.NewTool("trace_statistics",
		mcp.WithDescription("Compute statistics of every task and counter of a loaded trace and the load of each CPU"),
		filePath, from, to,
	), result(func(ctx context.Context, request mcp.CallToolRequest) (string, error) {
		path, err := request.RequireString("file_path")
		if err != nil {
			return "", err
		}
		return svc.traceStatistics(path, window(request))
	}))

	s.AddTool(mcp.NewTool("annotation_at",
		mcp.WithDescription("Return the text annotations of a line at the first annotated time at or after the given time"),
		filePath, lineName,
		mcp.WithNumber("time",
			mcp.Required(),
			mcp.Description("Time in seconds"),
		),
	), result(func(ctx context.Context, request mcp.CallToolRequest) (string, error) {
		path, err := request.RequireString("file_path")
		if err != nil {
			return "", err
		}
		name, err := request.RequireString("line")
		if err != nil {
			return "", err
		}
		t, err := request.RequireFloat("time")
		if err != nil {
			return "", err
		}
		return svc.annotationAt(path, name, trace.Time(t))
	}))
}
