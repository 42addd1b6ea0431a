// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const commitEnqueued = `<response status="success" code="19"><result><msg><line>Commit job enqueued with jobid 42</line></msg><job>42</job></result></response>`

func jobXML(status, result string, progress int, lines ...string) string {
	var b strings.Builder
	b.WriteString(`<response status="success"><result><job><id>42</id><type>Commit</type>`)
	b.WriteString(`<status>` + status + `</status><result>` + result + `</result>`)
	b.WriteString(`<progress>` + strconv.Itoa(progress) + `</progress><details>`)
	for _, l := range lines {
		b.WriteString(`<line>` + l + `</line>`)
	}
	b.WriteString(`</details></job></result></response>`)
	return b.String()
}

// fastWait polls without noticeable delay
var fastWait = WaitOptions{MinDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestCommit(t *testing.T) {
	tests := []struct {
		name    string
		opts    CommitOptions
		wantCmd string
	}{
		{
			name:    "plain",
			wantCmd: `<commit/>`,
		},
		{
			name:    "force with description",
			opts:    CommitOptions{Force: true, Description: "nightly"},
			wantCmd: `<commit><force/><description>nightly</description></commit>`,
		},
		{
			name:    "partial by admin",
			opts:    CommitOptions{Admins: []string{"alice", "bob"}},
			wantCmd: `<commit><partial><admin><member>alice</member><member>bob</member></admin></partial></commit>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession(fw102, func(req Request) (Response, error) {
				return xmlReply(commitEnqueued)
			})

			job, err := Commit(context.Background(), s, tt.opts)
			if err != nil {
				t.Fatalf("Commit() error = %v", err)
			}
			if job == nil || job.ID != 42 || job.Status != JobStatusPending {
				t.Fatalf("Commit() job = %+v, want pending job 42", job)
			}

			reqs := s.sent()
			if len(reqs) != 1 {
				t.Fatalf("sent %d requests, want 1", len(reqs))
			}
			req := reqs[0]
			if req.Transport != TransportXML || req.XMLType() != XMLTypeCommit {
				t.Errorf("request transport=%s type=%s", req.Transport, req.XMLType())
			}
			if got := req.Params.Get("cmd"); got != tt.wantCmd {
				t.Errorf("cmd = %s, want %s", got, tt.wantCmd)
			}
		})
	}
}

func TestCommit_NothingToCommit(t *testing.T) {
	s := newFakeSession(fw102, func(req Request) (Response, error) {
		return xmlReply(`<response status="success" code="19"><msg>There are no changes to commit.</msg></response>`)
	})

	job, err := Commit(context.Background(), s, CommitOptions{})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if job != nil {
		t.Errorf("Commit() job = %+v, want nil", job)
	}
}

func TestCommit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantKind ErrorKind
	}{
		{
			name:     "rejected",
			reply:    `<response status="error"><msg><line>Commit is in progress</line></msg></response>`,
			wantKind: KindDevice,
		},
		{
			name:     "expired session",
			reply:    `<response status="error" code="22"><msg>Session timed out</msg></response>`,
			wantKind: KindAuth,
		},
		{
			name:     "bad job id",
			reply:    `<response status="success"><result><job>abc</job></result></response>`,
			wantKind: KindDevice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession(fw102, func(req Request) (Response, error) {
				return xmlReply(tt.reply)
			})
			_, err := Commit(context.Background(), s, CommitOptions{})
			e := requireKind(t, err, tt.wantKind)
			if e.Op != "commit" {
				t.Errorf("Op = %q, want commit", e.Op)
			}
		})
	}
}

func TestCommit_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Commit(ctx, newFakeSession(fw102, nil), CommitOptions{})
	e := requireKind(t, err, KindTransport)
	if e.Op != "commit" {
		t.Errorf("Op = %q, want commit", e.Op)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error does not wrap context.Canceled: %v", err)
	}
}

func TestCommitAll(t *testing.T) {
	tests := []struct {
		name    string
		opts    CommitAllOptions
		wantCmd string
	}{
		{
			name:    "device groups",
			opts:    CommitAllOptions{DeviceGroups: []string{"branch", "dc"}, IncludeTemplate: true},
			wantCmd: `<commit-all><shared-policy><device-group><entry name="branch"/><entry name="dc"/></device-group><include-template>yes</include-template></shared-policy></commit-all>`,
		},
		{
			name:    "device group with description",
			opts:    CommitAllOptions{DeviceGroups: []string{"branch"}, Description: "push"},
			wantCmd: `<commit-all><shared-policy><device-group><entry name="branch"/></device-group><include-template>no</include-template><description>push</description></shared-policy></commit-all>`,
		},
		{
			name:    "template",
			opts:    CommitAllOptions{Template: "edge-stack", Description: "tpl"},
			wantCmd: `<commit-all><template><name>edge-stack</name><description>tpl</description></template></commit-all>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession(pano111, func(req Request) (Response, error) {
				return xmlReply(commitEnqueued)
			})
			job, err := CommitAll(context.Background(), s, tt.opts)
			if err != nil {
				t.Fatalf("CommitAll() error = %v", err)
			}
			if job == nil || job.ID != 42 {
				t.Fatalf("CommitAll() job = %+v", job)
			}
			req := s.sent()[0]
			if req.Method != "all" {
				t.Errorf("Method = %q, want all", req.Method)
			}
			if got := req.Params.Get("cmd"); got != tt.wantCmd {
				t.Errorf("cmd = %s\nwant %s", got, tt.wantCmd)
			}
		})
	}
}

func TestCommitAll_Errors(t *testing.T) {
	t.Run("firewall", func(t *testing.T) {
		s := newFakeSession(fw102, nil)
		_, err := CommitAll(context.Background(), s, CommitAllOptions{DeviceGroups: []string{"branch"}})
		requireKind(t, err, KindScope)
		if n := len(s.sent()); n != 0 {
			t.Errorf("sent %d requests, want none", n)
		}
	})

	t.Run("no target", func(t *testing.T) {
		s := newFakeSession(pano111, nil)
		_, err := CommitAll(context.Background(), s, CommitAllOptions{})
		requireKind(t, err, KindValidation)
	})
}

func TestJob_Poll(t *testing.T) {
	s := newFakeSession(fw102, func(req Request) (Response, error) {
		return xmlReply(jobXML(JobStatusActive, "PEND", 55, "Validating", " "))
	})
	j := NewJob(s, 42)

	if err := j.Poll(context.Background()); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	want := &Job{ID: 42, Type: "Commit", Status: JobStatusActive, Result: "PEND", Progress: 55, Messages: []string{"Validating"}}
	if diff := cmp.Diff(want, j, cmpopts.IgnoreUnexported(Job{})); diff != "" {
		t.Errorf("Poll() job mismatch (-want +got):\n%s", diff)
	}
	if j.Done() || j.Err() != nil {
		t.Error("active job reported as done")
	}

	req := s.sent()[0]
	if req.XMLType() != XMLTypeOp || req.Params.Get("cmd") != "<show><jobs><id>42</id></jobs></show>" {
		t.Errorf("poll request = %+v", req)
	}
}

func TestJob_PollNotFound(t *testing.T) {
	s := newFakeSession(fw102, func(req Request) (Response, error) {
		return xmlReply(`<response status="success"><result/></response>`)
	})
	requireKind(t, NewJob(s, 7).Poll(context.Background()), KindNotFound)
}

func TestJob_Err(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr string
	}{
		{"pending", Job{ID: 1, Status: JobStatusPending}, ""},
		{"ok", Job{ID: 1, Status: JobStatusFinished, Result: JobResultOK}, ""},
		{"failed with details", Job{ID: 1, Status: JobStatusFinished, Result: JobResultFail, Messages: []string{"a", "b"}}, "a; b"},
		{"failed without details", Job{ID: 1, Status: JobStatusFinished, Result: JobResultFail}, "job result FAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Err()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Err() = %v, want nil", err)
				}
				return
			}
			e := requireKind(t, err, KindDevice)
			if e.Message != tt.wantErr || e.Entity != "job/1" {
				t.Errorf("Err() = %+v", e)
			}
		})
	}
}

func TestJob_Wait(t *testing.T) {
	var polls atomic.Int32
	s := newFakeSession(fw102, func(req Request) (Response, error) {
		switch polls.Add(1) {
		case 1:
			return xmlReply(jobXML(JobStatusPending, "", 0))
		case 2:
			return xmlReply(jobXML(JobStatusActive, "PEND", 50))
		}
		return xmlReply(jobXML(JobStatusFinished, JobResultOK, 100, "Configuration committed successfully"))
	})

	job, err := WaitJob(context.Background(), s, 42, fastWait)
	if err != nil {
		t.Fatalf("WaitJob() error = %v", err)
	}
	if polls.Load() != 3 {
		t.Errorf("polled %d times, want 3", polls.Load())
	}
	if !job.Done() || job.Result != JobResultOK || job.Progress != 100 {
		t.Errorf("job = %+v", job)
	}
}

func TestJob_WaitFailure(t *testing.T) {
	s := newFakeSession(fw102, func(req Request) (Response, error) {
		return xmlReply(jobXML(JobStatusFinished, JobResultFail, 100, "Validation Error:", "address -> web1 is invalid"))
	})

	err := NewJob(s, 42).Wait(context.Background(), fastWait)
	e := requireKind(t, err, KindDevice)
	if !strings.Contains(e.Message, "web1 is invalid") {
		t.Errorf("Message = %q", e.Message)
	}
}

func TestJob_WaitContextEnds(t *testing.T) {
	s := newFakeSession(fw102, func(req Request) (Response, error) {
		return xmlReply(jobXML(JobStatusActive, "PEND", 10))
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewJob(s, 42).Wait(ctx, WaitOptions{MinDelay: time.Minute})
	requireKind(t, err, KindTransport)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error does not wrap the deadline: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Wait() ignored the context deadline")
	}
}

func TestWaitOptions_Backoff(t *testing.T) {
	tests := []struct {
		name    string
		opts    WaitOptions
		attempt int
		base    time.Duration
	}{
		{"first poll", WaitOptions{MinDelay: time.Second, MaxDelay: time.Minute, Factor: 2}, 0, time.Second},
		{"third poll", WaitOptions{MinDelay: time.Second, MaxDelay: time.Minute, Factor: 2}, 2, 4 * time.Second},
		{"capped", WaitOptions{MinDelay: time.Second, MaxDelay: 10 * time.Second, Factor: 2}, 8, 10 * time.Second},
		{"overflow capped", WaitOptions{MinDelay: time.Second, MaxDelay: 10 * time.Second, Factor: 2}, 5000, 10 * time.Second},
		{"defaults", WaitOptions{}, 0, DefaultPollMinDelay},
		{"default cap", WaitOptions{}, 100, DefaultPollMaxDelay},
		{"max below min", WaitOptions{MinDelay: time.Minute, MaxDelay: time.Second}, 3, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.opts.Backoff(tt.attempt)
			if got < tt.base || got > tt.base+tt.base/10 {
				t.Errorf("Backoff(%d) = %v, want within [%v, %v]", tt.attempt, got, tt.base, tt.base+tt.base/10)
			}
		})
	}
}
