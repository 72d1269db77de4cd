// Copyright 2026 The Relay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relaysrv

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relayproject/relay-go/internal/rest"
	"github.com/relayproject/relay-go/log"
	"github.com/relayproject/relay-go/relay"
	"github.com/relayproject/relay-go/relayclient"
)

// maxUploadMemory bounds how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxUploadMemory = 32 << 20

func (s *Server) handleSubmit(c *gin.Context) {
	var cc relay.CallContext
	if err := c.ShouldBindJSON(&cc); err != nil {
		s.problem(c, relay.NewError(relay.ErrValidation, err.Error()))
		return
	}

	sub, err := s.client.Submit(c.Request.Context(), cc)
	if err != nil {
		s.problem(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id":    sub.TaskID,
		"user_id":    sub.UserID,
		"session_id": sub.SessionID,
	})
}

// handleGetTask forwards a single poll. The browser owns the backoff loop;
// the proxy only hides the credential.
func (s *Server) handleGetTask(c *gin.Context) {
	status, err := s.client.PollOnce(c.Request.Context(), relay.TaskID(c.Param("id")))
	if err != nil {
		s.problem(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleUpload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		s.problem(c, relay.NewError(relay.ErrValidation, "invalid multipart request"))
		return
	}
	headers := c.Request.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.problem(c, relay.NewError(relay.ErrValidation, "no files provided"))
		return
	}

	files := make([]relayclient.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			s.problem(c, relay.NewError(relay.ErrValidation, "unreadable file "+header.Filename))
			return
		}
		defer f.Close()
		files = append(files, relayclient.File{
			Name:      header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Reader:    f,
		})
	}

	result, err := s.client.Upload(c.Request.Context(), files)
	if err != nil {
		s.problem(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) problem(c *gin.Context, err error) {
	status, body := rest.ToRESTError(err)
	if status >= http.StatusInternalServerError {
		log.Error(c.Request.Context(), "proxy request failed", err, "path", c.FullPath())
	}
	c.JSON(status, body)
}
