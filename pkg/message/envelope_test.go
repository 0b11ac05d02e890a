package message

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeResponses(t *testing.T) {
	t.Run("create success", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"success","transaction":"tx-1","data":{"id":8213870142}}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Kind != KindSuccess {
			t.Errorf("Kind = %v, want KindSuccess", env.Kind)
		}
		if env.Transaction != "tx-1" {
			t.Errorf("Transaction = %q, want tx-1", env.Transaction)
		}
		var data IDData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
		if data.ID != 8213870142 {
			t.Errorf("data.ID = %d, want 8213870142", data.ID)
		}
	})

	t.Run("error frame", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"error","transaction":"tx-2","error":{"code":458,"reason":"No such session"}}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Kind != KindError {
			t.Errorf("Kind = %v, want KindError", env.Kind)
		}
		if env.Error == nil || env.Error.Code != 458 {
			t.Fatalf("Error = %+v, want code 458", env.Error)
		}
		if env.Error.Reason != "No such session" {
			t.Errorf("Reason = %q", env.Error.Reason)
		}
	})

	t.Run("async event with jsep", func(t *testing.T) {
		frame := `{"janus":"event","session_id":11,"transaction":"tx-3","sender":42,` +
			`"plugindata":{"plugin":"janus.plugin.echotest","data":{"echotest":"event","result":"ok"}},` +
			`"jsep":{"type":"answer","sdp":"v=0\r\n"}}`
		env, err := Decode([]byte(frame))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Sender != 42 {
			t.Errorf("Sender = %d, want 42", env.Sender)
		}
		if env.Plugin == nil || env.Plugin.Plugin != "janus.plugin.echotest" {
			t.Fatalf("Plugin = %+v", env.Plugin)
		}
		if env.JSEP == nil || env.JSEP.Type != "answer" {
			t.Fatalf("JSEP = %+v, want answer", env.JSEP)
		}
		if !strings.HasPrefix(env.JSEP.SDP, "v=0") {
			t.Errorf("SDP = %q", env.JSEP.SDP)
		}
	})

	t.Run("unknown kind is tolerated", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"some_future_event","session_id":7}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Kind != KindUnknown {
			t.Errorf("Kind = %v, want KindUnknown", env.Kind)
		}
		if len(env.Raw) == 0 {
			t.Error("Raw not preserved")
		}
	})
}

func TestDecodeEvents(t *testing.T) {
	t.Run("trickle candidate", func(t *testing.T) {
		frame := `{"janus":"trickle","sender":42,"candidate":{"candidate":"candidate:1 1 udp 2013266431 192.0.2.1 40000 typ host","sdpMid":"0","sdpMLineIndex":0}}`
		env, err := Decode([]byte(frame))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Candidate == nil {
			t.Fatal("Candidate missing")
		}
		if !env.Candidate.Complete() {
			t.Error("Complete() = false, want true")
		}
		if *env.Candidate.SDPMid != "0" || *env.Candidate.SDPMLineIndex != 0 {
			t.Errorf("mid/index = %v/%v", *env.Candidate.SDPMid, *env.Candidate.SDPMLineIndex)
		}
	})

	t.Run("trickle without media line", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"trickle","sender":42,"candidate":{"candidate":"candidate:1 1 udp 1 192.0.2.1 1 typ host"}}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Candidate.Complete() {
			t.Error("Complete() = true for candidate without mid and index")
		}
	})

	t.Run("trickle completed", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"trickle","sender":42,"candidate":{"completed":true}}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !env.Candidate.Completed {
			t.Error("Completed = false, want true")
		}
	})

	t.Run("media", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"media","session_id":11,"sender":42,"mid":"0","type":"audio","receiving":true}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Type != "audio" || !env.Receiving || env.Mid != "0" {
			t.Errorf("media fields = %q/%v/%q", env.Type, env.Receiving, env.Mid)
		}
	})

	t.Run("slowlink", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"slowlink","sender":42,"uplink":true,"lost":12}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !env.Uplink || env.Lost != 12 {
			t.Errorf("uplink/lost = %v/%d", env.Uplink, env.Lost)
		}
	})

	t.Run("hangup reason", func(t *testing.T) {
		env, err := Decode([]byte(`{"janus":"hangup","sender":42,"reason":"DTLS alert"}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if env.Reason != "DTLS alert" {
			t.Errorf("Reason = %q", env.Reason)
		}
	})
}

func TestRequestEncode(t *testing.T) {
	t.Run("create omits session fields", func(t *testing.T) {
		data, err := (&Request{Kind: KindCreate, Transaction: "tx-1"}).Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("reparse: %v", err)
		}
		if m["janus"] != "create" {
			t.Errorf("janus = %v", m["janus"])
		}
		for _, key := range []string{"session_id", "handle_id", "body", "candidate"} {
			if _, ok := m[key]; ok {
				t.Errorf("unexpected key %q in create request", key)
			}
		}
	})

	t.Run("message carries ids and body", func(t *testing.T) {
		req := &Request{
			Kind:        KindMessage,
			Transaction: "tx-2",
			SessionID:   11,
			HandleID:    42,
			Body:        json.RawMessage(`{"audio":true}`),
			JSEP:        &SessionDescription{Type: "offer", SDP: "v=0\r\n"},
		}
		data, err := req.Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("reparse: %v", err)
		}
		if m["session_id"] != float64(11) || m["handle_id"] != float64(42) {
			t.Errorf("ids = %v/%v", m["session_id"], m["handle_id"])
		}
		if _, ok := m["body"].(map[string]any); !ok {
			t.Errorf("body = %v", m["body"])
		}
		if _, ok := m["jsep"].(map[string]any); !ok {
			t.Errorf("jsep = %v", m["jsep"])
		}
	})

	t.Run("trickle completed marker", func(t *testing.T) {
		req := &Request{Kind: KindTrickle, SessionID: 11, HandleID: 42, Candidate: &Candidate{Completed: true}}
		data, err := req.Encode()
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		want := `"candidate":{"completed":true}`
		if !strings.Contains(string(data), want) {
			t.Errorf("Encode() = %s, want substring %s", data, want)
		}
	})
}

func TestPluginErrorFrom(t *testing.T) {
	t.Run("flat error", func(t *testing.T) {
		pe := PluginErrorFrom("janus.plugin.videoroom", []byte(`{"videoroom":"event","error_code":426,"error":"No such room"}`))
		if pe == nil {
			t.Fatal("PluginErrorFrom() = nil, want error")
		}
		if pe.Code != 426 || pe.Reason != "No such room" {
			t.Errorf("Code/Reason = %d/%q", pe.Code, pe.Reason)
		}
		if pe.Plugin != "janus.plugin.videoroom" {
			t.Errorf("Plugin = %q", pe.Plugin)
		}
	})

	t.Run("nested error block", func(t *testing.T) {
		pe := PluginErrorFrom("", []byte(`{"error":{"code":403,"reason":"Unauthorized"}}`))
		if pe == nil {
			t.Fatal("PluginErrorFrom() = nil, want error")
		}
		if pe.Code != 403 || pe.Reason != "Unauthorized" {
			t.Errorf("Code/Reason = %d/%q", pe.Code, pe.Reason)
		}
	})

	t.Run("clean payload", func(t *testing.T) {
		if pe := PluginErrorFrom("", []byte(`{"result":"ok"}`)); pe != nil {
			t.Errorf("PluginErrorFrom() = %v, want nil", pe)
		}
	})
}

func TestServerInfoFrom(t *testing.T) {
	raw := []byte(`{"janus":"server_info","name":"Janus WebRTC Server","version":1301,` +
		`"version_string":"1.3.1","data_channels":true,"full-trickle":false,` +
		`"plugins":{"janus.plugin.echotest":{"name":"JANUS EchoTest plugin","version":7}}}`)
	info, err := ServerInfoFrom(raw)
	if err != nil {
		t.Fatalf("ServerInfoFrom() error = %v", err)
	}
	if info.Name != "Janus WebRTC Server" || info.Version != 1301 {
		t.Errorf("Name/Version = %q/%d", info.Name, info.Version)
	}
	if !info.DataChannels {
		t.Error("DataChannels = false, want true")
	}
	p, ok := info.Plugins["janus.plugin.echotest"]
	if !ok || p.Version != 7 {
		t.Errorf("Plugins[echotest] = %+v, ok=%v", p, ok)
	}
}
