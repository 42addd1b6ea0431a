// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Default job polling configuration
const (
	DefaultPollMinDelay    = 1 * time.Second
	DefaultPollMaxDelay    = 15 * time.Second
	DefaultPollDelayFactor = 1.5
)

// Job states and results reported by "show jobs"
const (
	JobStatusPending  = "PEND"
	JobStatusActive   = "ACT"
	JobStatusFinished = "FIN"
	JobResultOK       = "OK"
	JobResultFail     = "FAIL"
)

// CommitOptions tunes a candidate configuration commit
type CommitOptions struct {
	// Description is recorded with the commit
	Description string

	// Admins restricts the commit to changes made by these administrators
	Admins []string

	// Force commits even when another commit is pending
	Force bool
}

// CommitAllOptions tunes a Panorama push to managed devices.
//
// Template pushes the named template or template stack; otherwise the
// device groups in DeviceGroups are pushed.
type CommitAllOptions struct {
	DeviceGroups    []string
	Template        string
	IncludeTemplate bool
	Description     string
}

// Job is a device-side asynchronous job, such as a commit
type Job struct {
	ID       int64
	Type     string
	Status   string
	Result   string
	Progress int
	Messages []string

	session Session
}

// Commit applies the candidate configuration.
//
// It returns as soon as the device has accepted the request. The returned
// job is nil when there was nothing to commit. Use Job.Wait or WaitJob to
// follow the job; the caller decides how long to wait.
func Commit(ctx context.Context, s Session, opts CommitOptions) (*Job, error) {
	root := etree.NewElement("commit")
	if opts.Force {
		root.CreateElement("force")
	}
	if len(opts.Admins) > 0 {
		admin := root.CreateElement("partial").CreateElement("admin")
		for _, a := range opts.Admins {
			admin.CreateElement("member").SetText(a)
		}
	}
	if opts.Description != "" {
		root.CreateElement("description").SetText(opts.Description)
	}
	return submitCommit(ctx, s, "commit", Request{
		Transport: TransportXML,
		Params:    url.Values{"type": {XMLTypeCommit}, "cmd": {elementString(root)}},
	})
}

// CommitAll pushes Panorama configuration to managed firewalls
func CommitAll(ctx context.Context, s Session, opts CommitAllOptions) (*Job, error) {
	if dev := s.Device(); dev.Kind != DevicePanorama {
		return nil, newError(KindScope, "commit-all", "commit-all requires panorama, device is %s", dev.Kind)
	}
	root := etree.NewElement("commit-all")
	switch {
	case opts.Template != "":
		tpl := root.CreateElement("template")
		tpl.CreateElement("name").SetText(opts.Template)
		if opts.Description != "" {
			tpl.CreateElement("description").SetText(opts.Description)
		}
	case len(opts.DeviceGroups) > 0:
		sp := root.CreateElement("shared-policy")
		dg := sp.CreateElement("device-group")
		for _, name := range opts.DeviceGroups {
			dg.CreateElement("entry").CreateAttr("name", name)
		}
		sp.CreateElement("include-template").SetText(yesNo(opts.IncludeTemplate))
		if opts.Description != "" {
			sp.CreateElement("description").SetText(opts.Description)
		}
	default:
		return nil, newError(KindValidation, "commit-all", "a template or at least one device group is required")
	}
	return submitCommit(ctx, s, "commit-all", Request{
		Transport: TransportXML,
		Method:    "all",
		Params:    url.Values{"type": {XMLTypeCommit}, "cmd": {elementString(root)}},
	})
}

func submitCommit(ctx context.Context, s Session, op string, req Request) (*Job, error) {
	logger := loggerOf(s)
	logger.Debug(ctx, "Submitting commit", "operation", op)

	res, err := s.Do(ctx, req)
	if err != nil {
		return nil, withOp(err, op, "")
	}
	root, err := CheckXML(op, res)
	if err != nil {
		logger.Warn(ctx, "Commit rejected", "operation", op, "error", err.Error())
		return nil, err
	}
	jobElem := root.FindElement("./result/job")
	if jobElem == nil {
		logger.Info(ctx, "Nothing to commit", "operation", op, "message", xmlMessage(root))
		return nil, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(jobElem.Text()), 10, 64)
	if err != nil {
		return nil, newError(KindDevice, op, "invalid job id %q", jobElem.Text())
	}
	logger.Info(ctx, "Commit enqueued", "operation", op, "job_id", id)
	return &Job{ID: id, Status: JobStatusPending, session: s}, nil
}

// NewJob returns a handle for an existing job id
func NewJob(s Session, id int64) *Job {
	return &Job{ID: id, session: s}
}

// Poll reads the job status once
func (j *Job) Poll(ctx context.Context) error {
	cmd := "<show><jobs><id>" + strconv.FormatInt(j.ID, 10) + "</id></jobs></show>"
	res, err := j.session.Do(ctx, OpCommand(cmd))
	if err != nil {
		return withOp(err, "job", "")
	}
	root, err := CheckXML("job", res)
	if err != nil {
		return err
	}
	e := root.FindElement("./result/job")
	if e == nil {
		return newError(KindNotFound, "job", "job %d not found", j.ID)
	}
	j.Type = childText(e, "type")
	j.Status = childText(e, "status")
	j.Result = childText(e, "result")
	j.Progress, _ = strconv.Atoi(childText(e, "progress"))
	j.Messages = j.Messages[:0]
	for _, l := range e.FindElements("./details/line") {
		if t := strings.TrimSpace(l.Text()); t != "" {
			j.Messages = append(j.Messages, t)
		}
	}
	return nil
}

// Done reports whether the job has finished
func (j *Job) Done() bool {
	return j.Status == JobStatusFinished
}

// Err returns the job failure once the job finished unsuccessfully
func (j *Job) Err() error {
	if !j.Done() || j.Result == JobResultOK {
		return nil
	}
	msg := strings.Join(j.Messages, "; ")
	if msg == "" {
		msg = "job result " + j.Result
	}
	return &Error{Kind: KindDevice, Op: "job", Entity: "job/" + strconv.FormatInt(j.ID, 10), Message: msg}
}

// WaitOptions is the polling policy of Job.Wait
type WaitOptions struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	Factor   float64
}

func (w WaitOptions) withDefaults() WaitOptions {
	if w.MinDelay <= 0 {
		w.MinDelay = DefaultPollMinDelay
	}
	if w.MaxDelay < w.MinDelay {
		w.MaxDelay = DefaultPollMaxDelay
		if w.MaxDelay < w.MinDelay {
			w.MaxDelay = w.MinDelay
		}
	}
	if w.Factor < 1 {
		w.Factor = DefaultPollDelayFactor
	}
	return w
}

// Backoff returns the delay before poll number attempt (0-indexed).
//
// The delay is minDelay * factor^attempt, capped at maxDelay, plus up to 10%
// random jitter so that many waiters do not poll in lockstep.
func (w WaitOptions) Backoff(attempt int) time.Duration {
	w = w.withDefaults()
	delay := float64(w.MinDelay) * math.Pow(w.Factor, float64(attempt))
	if math.IsInf(delay, 1) || delay > float64(w.MaxDelay) {
		delay = float64(w.MaxDelay)
	}

	jitterMax := int64(delay * 0.1)
	if jitterMax > 0 {
		var b [8]byte
		if _, err := rand.Read(b[:]); err == nil {
			//nolint:gosec // G115: masked to a non-negative int64
			delay += float64(int64(binary.BigEndian.Uint64(b[:])&0x7FFFFFFFFFFFFFFF) % jitterMax)
		} else {
			delay += float64((time.Now().UnixNano()%jitterMax + jitterMax) % jitterMax)
		}
	}
	return time.Duration(delay)
}

// Wait polls until the job finishes or ctx ends.
//
// Wait never sets a deadline of its own: bound it with ctx. A job that
// finished with a result other than OK is returned as a KindDevice error.
func (j *Job) Wait(ctx context.Context, opts WaitOptions) error {
	logger := loggerOf(j.session)
	for attempt := 0; ; attempt++ {
		if err := j.Poll(ctx); err != nil {
			return err
		}
		if j.Done() {
			logger.Info(ctx, "Job finished", "job_id", j.ID, "result", j.Result)
			return j.Err()
		}
		delay := opts.Backoff(attempt)
		logger.Debug(ctx, "Job in progress",
			"job_id", j.ID,
			"status", j.Status,
			"progress", j.Progress,
			"next_poll_ms", delay.Milliseconds())

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return wrapError(KindTransport, "job", ctx.Err())
		case <-timer.C:
		}
	}
}

// WaitJob waits for the job with the given id
func WaitJob(ctx context.Context, s Session, id int64, opts WaitOptions) (*Job, error) {
	j := NewJob(s, id)
	return j, j.Wait(ctx, opts)
}

func childText(e *etree.Element, tag string) string {
	c := e.SelectElement(tag)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text())
}

// loggerOf returns the session's logger, or a NoOpLogger
func loggerOf(s Session) Logger {
	if ls, ok := s.(loggerSource); ok {
		if l := ls.Logger(); l != nil {
			return l
		}
	}
	return &NoOpLogger{}
}
