package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleDownlinkEncodeDecodeRoundTrip(t *testing.T) {
	s := newTestServer()

	encodeReq := downlinkEncodeRequest{
		Devid:   1,
		Seqnum:  1,
		Key:     "00112233445566778899aabbccddeeff",
		Payload: "0011223344556677",
	}
	body, _ := json.Marshal(encodeReq)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/downlink/encode", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.HandleDownlinkEncode(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("encode: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var encodeResp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &encodeResp); err != nil {
		t.Fatalf("decode encode response: %v", err)
	}

	decodeReq := downlinkDecodeRequest{
		Devid:  encodeReq.Devid,
		Seqnum: encodeReq.Seqnum,
		Key:    encodeReq.Key,
		Frame:  encodeResp["frame"],
	}
	body, _ = json.Marshal(decodeReq)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/downlink/decode", bytes.NewReader(body))
	rec = httptest.NewRecorder()

	s.HandleDownlinkDecode(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("decode: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var decodeResp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decodeResp); err != nil {
		t.Fatalf("decode decode response: %v", err)
	}
	if decodeResp["payload"] != "0011223344556677" {
		t.Fatalf("payload = %v, want 0011223344556677", decodeResp["payload"])
	}
	if decodeResp["crcOk"] != true {
		t.Fatalf("crcOk = %v, want true", decodeResp["crcOk"])
	}
	if decodeResp["macOk"] != true {
		t.Fatalf("macOk = %v, want true", decodeResp["macOk"])
	}
}
