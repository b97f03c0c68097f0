package ringd_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringd"
	"github.com/brickingsoft/ringd/pkg/process"
)

func TestNewOptions_Defaults(t *testing.T) {
	options, err := ringd.NewOptions()
	if err != nil {
		t.Fatal(err)
	}
	if options.Address != "0.0.0.0" || options.Port != 8000 {
		t.Error("listen:", options.Address, options.Port)
	}
	if options.Entries != 1024 || options.MaxConnections != 2048 || options.BufferSize != 1024 {
		t.Error("sizes:", options.Entries, options.MaxConnections, options.BufferSize)
	}
	if options.Mode != ringd.ModeStatic || options.ErrorPolicy != ringd.PolicyIsolate {
		t.Error("mode:", options.Mode, "policy:", options.ErrorPolicy)
	}
	if string(options.Response) != string(ringd.StandardResponse()) {
		t.Errorf("response: %q", options.Response)
	}
	if options.Workers != 1 || !options.Multishot {
		t.Error("workers:", options.Workers, "multishot:", options.Multishot)
	}
}

func TestNewOptions_Apply(t *testing.T) {
	options, err := ringd.NewOptions(
		ringd.WithAddress("127.0.0.1"),
		ringd.WithPort(0),
		ringd.WithEntries(64),
		ringd.WithMaxConnections(16),
		ringd.WithBufferSize(512),
		ringd.WithBacklog(128),
		ringd.WithMode(ringd.ModeEcho),
		ringd.WithSQPoll(2*time.Second),
		ringd.WithWorkers(runtime.NumCPU()+8),
		ringd.WithPriority(process.HIGH),
		ringd.WithErrorPolicy(ringd.PolicyFailFast),
	)
	if err != nil {
		t.Fatal(err)
	}
	if options.Port != 0 || options.Entries != 64 || options.MaxConnections != 16 || options.BufferSize != 512 {
		t.Error("unexpected sizes:", options)
	}
	if options.Backlog != 128 || options.Mode != ringd.ModeEcho || options.ErrorPolicy != ringd.PolicyFailFast {
		t.Error("unexpected options:", options)
	}
	if !options.SQPoll || options.SQThreadIdle != 2*time.Second {
		t.Error("sqpoll:", options.SQPoll, options.SQThreadIdle)
	}
	if options.Workers != runtime.NumCPU() {
		t.Error("workers not clamped:", options.Workers)
	}
	if options.Priority != process.HIGH {
		t.Error("priority:", options.Priority)
	}
}

func TestNewOptions_Invalid(t *testing.T) {
	cases := map[string]ringd.Option{
		"port":    ringd.WithPort(70000),
		"entries": ringd.WithEntries(0),
		"conns":   ringd.WithMaxConnections(0),
		"buffer":  ringd.WithBufferSize(-1),
		"mode":    ringd.WithMode("mirror"),
		"policy":  ringd.WithErrorPolicy("ignore"),
		"workers": ringd.WithWorkers(0),
		"body":    ringd.WithResponse(nil),
	}
	for name, option := range cases {
		if _, err := ringd.NewOptions(option); !errors.Is(err, ringd.ErrInvalidOption) {
			t.Error(name, "expect invalid option, got", err)
		}
	}
}
