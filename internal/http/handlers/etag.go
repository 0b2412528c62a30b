package handlers

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	"github.com/geocoder89/tasklist/internal/domain/task"
	"github.com/gin-gonic/gin"
)

// TaskListETag fingerprints a list by order, id, text and revision time of
// every task, so any create, edit or delete yields a new tag.
func TaskListETag(items []task.Task) string {
	h := fnv.New64a()

	var ts [8]byte

	for _, t := range items {
		_, _ = h.Write([]byte(t.ID))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(t.Text))
		_, _ = h.Write([]byte{0})

		binary.BigEndian.PutUint64(ts[:], uint64(t.UpdatedAt.UnixNano()))
		_, _ = h.Write(ts[:])
	}

	return fmt.Sprintf(`W/"%d-%016x"`, len(items), h.Sum64())
}

// respondTaskList answers 304 when the client already holds this list.
func respondTaskList(ctx *gin.Context, items []task.Task) {
	etag := TaskListETag(items)

	// per-user payload, a shared cache must not keep it
	ctx.Header("Cache-Control", "private, no-cache")
	ctx.Header("ETag", etag)

	if notModified(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// notModified uses weak comparison, If-None-Match may list several tags.
func notModified(header, etag string) bool {
	header = strings.TrimSpace(header)

	if header == "" {
		return false
	}

	if header == "*" {
		return true
	}

	want := strings.TrimPrefix(etag, "W/")

	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimPrefix(strings.TrimSpace(candidate), "W/") == want {
			return true
		}
	}

	return false
}
