// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package panos

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/tidwall/gjson"
)

// Response is the raw device reply to one Request
type Response struct {
	// Transport the request was sent over
	Transport Transport

	// StatusCode is the HTTP status code
	StatusCode int

	// Body is the raw response body
	Body []byte
}

// GetValue retrieves a value from a REST response body using a gjson path.
//
// Example:
//
//	res, _ := session.Do(ctx, req)
//	desc := res.GetValue("result.entry.0.description").String()
func (r Response) GetValue(path string) gjson.Result {
	if len(r.Body) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// XML parses an XML API response body and returns the <response> element
func (r Response) XML() (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(r.Body); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errEmptyXML
	}
	return root, nil
}

var errEmptyXML = &Error{Kind: KindDevice, Op: "decode", Message: "empty XML response"}

// CheckREST interprets the PAN-OS REST envelope and returns the parsed body
// when the call succeeded.
//
// Success bodies carry "@status":"success"; failures carry a numeric "code"
// and "message". When the body has no code the HTTP status decides.
func CheckREST(op string, res Response) (gjson.Result, error) {
	body := gjson.ParseBytes(res.Body)

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if st := restChild(body, "@status"); !st.Exists() || st.String() == "success" {
			return body, nil
		}
	}

	code := int(body.Get("code").Int())
	if code == 0 {
		code = int(restChild(body, "@code").Int())
	}
	msg := body.Get("message").String()
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}

	kind := kindForCode(code, TransportREST)
	if kind == KindDevice {
		switch res.StatusCode {
		case http.StatusNotFound:
			kind = KindNotFound
		case http.StatusConflict:
			kind = KindConflict
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = KindAuth
		}
	}

	var internal string
	if details := body.Get("details"); details.Exists() {
		internal = details.Raw
	}
	return body, &Error{
		Kind:        kind,
		Op:          op,
		Code:        code,
		Message:     msg,
		InternalMsg: internal,
	}
}

// CheckXML interprets the PAN-OS XML envelope
// (<response status="success|error" code="..">) and returns the root element.
func CheckXML(op string, res Response) (*etree.Element, error) {
	root, err := res.XML()
	if err != nil {
		kind := KindDevice
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			kind = KindAuth
		}
		return nil, &Error{Kind: kind, Op: op, Message: "malformed XML response", InternalMsg: err.Error(), Err: err}
	}

	code, _ := strconv.Atoi(root.SelectAttrValue("code", "0"))
	if root.SelectAttrValue("status", "") == "success" {
		return root, nil
	}

	kind := kindForCode(code, TransportXML)
	if code == http.StatusForbidden || res.StatusCode == http.StatusForbidden ||
		res.StatusCode == http.StatusUnauthorized {
		kind = KindAuth
	}
	msg := xmlMessage(root)
	if msg == "" {
		msg = "request failed"
	}
	return root, &Error{Kind: kind, Op: op, Code: code, Message: msg}
}

// xmlMessage collects the <msg> text of an XML API response
func xmlMessage(root *etree.Element) string {
	msg := root.FindElement("./msg")
	if msg == nil {
		msg = root.FindElement("./result/msg")
	}
	if msg == nil {
		return ""
	}
	lines := msg.FindElements(".//line")
	if len(lines) == 0 {
		return strings.TrimSpace(msg.Text())
	}
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "; ")
}
