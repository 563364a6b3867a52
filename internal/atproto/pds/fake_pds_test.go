package pds

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"Memories/internal/core/blobs"
)

const testDID = "did:plc:memoriestest"

type storedRecord struct {
	cid   string
	value json.RawMessage
}

// fakePDS is a minimal in-memory com.atproto.repo XRPC server.
type fakePDS struct {
	server      *httptest.Server
	records     map[string]map[string]storedRecord
	blobs       map[string][]byte
	failNext    map[string]int
	calls       []string
	mu          sync.Mutex
	serial      int
	deleteNoops bool
}

func newFakePDS(t *testing.T) *fakePDS {
	t.Helper()
	f := &fakePDS{
		records:     make(map[string]map[string]storedRecord),
		blobs:       make(map[string][]byte),
		failNext:    make(map[string]int),
		deleteNoops: true,
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePDS) client(t *testing.T) Client {
	t.Helper()
	c, err := NewFromAccessToken(f.server.URL, testDID, "test-token")
	require.NoError(t, err)
	return c
}

// failWith makes the next call to method answer with status.
func (f *fakePDS) failWith(method string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext[method] = status
}

func (f *fakePDS) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakePDS) count(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[collection])
}

func writeXRPCError(w http.ResponseWriter, status int, name, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": name, "message": message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakePDS) handle(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[len("/xrpc/"):]

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)

	if r.Header.Get("Authorization") != "Bearer test-token" {
		writeXRPCError(w, http.StatusUnauthorized, "AuthRequired", "missing token")
		return
	}
	if status, ok := f.failNext[method]; ok {
		delete(f.failNext, method)
		writeXRPCError(w, status, "InternalServerError", "injected failure")
		return
	}

	switch method {
	case "com.atproto.repo.createRecord", "com.atproto.repo.putRecord", "com.atproto.repo.deleteRecord":
		var body struct {
			Collection string          `json:"collection"`
			RKey       string          `json:"rkey"`
			SwapRecord string          `json:"swapRecord"`
			Record     json.RawMessage `json:"record"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeXRPCError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
			return
		}
		coll := f.records[body.Collection]
		if coll == nil {
			coll = make(map[string]storedRecord)
			f.records[body.Collection] = coll
		}

		if method == "com.atproto.repo.deleteRecord" {
			if _, ok := coll[body.RKey]; !ok && !f.deleteNoops {
				writeXRPCError(w, http.StatusBadRequest, "RecordNotFound", "no such record")
				return
			}
			delete(coll, body.RKey)
			writeJSON(w, map[string]any{})
			return
		}

		if method == "com.atproto.repo.createRecord" && body.RKey == "" {
			f.serial++
			body.RKey = fmt.Sprintf("3lmem%08d", f.serial)
		}
		if body.SwapRecord != "" && coll[body.RKey].cid != body.SwapRecord {
			writeXRPCError(w, http.StatusBadRequest, "InvalidSwap", "record was modified")
			return
		}
		f.serial++
		c, _ := blobs.ContentCID(append(body.Record, byte(f.serial)))
		coll[body.RKey] = storedRecord{cid: c, value: body.Record}
		writeJSON(w, map[string]string{
			"uri": fmt.Sprintf("at://%s/%s/%s", testDID, body.Collection, body.RKey),
			"cid": c,
		})

	case "com.atproto.repo.getRecord":
		q := r.URL.Query()
		rec, ok := f.records[q.Get("collection")][q.Get("rkey")]
		if !ok {
			writeXRPCError(w, http.StatusBadRequest, "RecordNotFound", "Could not locate record")
			return
		}
		writeJSON(w, map[string]any{
			"uri":   fmt.Sprintf("at://%s/%s/%s", testDID, q.Get("collection"), q.Get("rkey")),
			"cid":   rec.cid,
			"value": rec.value,
		})

	case "com.atproto.repo.listRecords":
		q := r.URL.Query()
		collection := q.Get("collection")
		var out []map[string]any
		for rkey, rec := range f.records[collection] {
			out = append(out, map[string]any{
				"uri":   fmt.Sprintf("at://%s/%s/%s", testDID, collection, rkey),
				"cid":   rec.cid,
				"value": rec.value,
			})
		}
		writeJSON(w, map[string]any{"records": out})

	case "com.atproto.repo.uploadBlob":
		data, _ := io.ReadAll(r.Body)
		c, err := blobs.ContentCID(data)
		if err != nil {
			writeXRPCError(w, http.StatusInternalServerError, "InternalServerError", err.Error())
			return
		}
		f.blobs[c] = data
		writeJSON(w, map[string]any{
			"blob": map[string]any{
				"$type":    "blob",
				"ref":      map[string]string{"$link": c},
				"mimeType": blobs.DetectMimeType(data),
				"size":     len(data),
			},
		})

	default:
		writeXRPCError(w, http.StatusNotFound, "MethodNotImplemented", method)
	}
}
