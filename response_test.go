package ringd_test

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/brickingsoft/ringd"
	"github.com/stretchr/testify/assert"
)

func TestStandardResponse(t *testing.T) {
	expect := "HTTP/1.1 200 OK\r\nContent-type: text/html\r\nContent-length: 17\r\n\r\nHave a nice day!\n"
	assert.Equal(t, expect, string(ringd.StandardResponse()))

	// callers get a copy
	b := ringd.StandardResponse()
	b[0] = 'X'
	assert.Equal(t, expect, string(ringd.StandardResponse()))
}

func TestBuildResponse(t *testing.T) {
	body := []byte(`{"ok":true}`)
	response := ringd.BuildResponse("application/json", body)
	head, tail, found := bytes.Cut(response, []byte("\r\n\r\n"))
	if !found {
		t.Fatalf("no header terminator: %q", response)
	}
	assert.Equal(t, body, tail)
	assert.Contains(t, string(head), "Content-type: application/json")
	assert.Contains(t, string(head), "Content-length: "+strconv.Itoa(len(body)))

	assert.Contains(t, string(ringd.BuildResponse("", nil)), "Content-type: text/html\r\nContent-length: 0\r\n\r\n")
}
