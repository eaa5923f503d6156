package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bjaergning/rapport/internal/engine"
	"github.com/gin-gonic/gin"
)

const maxFieldSize = 64 << 10

// submissionForm holds the fields of the report form in the order they were sent.
type submissionForm struct {
	location string
	subject  string
	times    []string
	descs    []string
	images   []*engine.Upload
}

// readSubmission reads the report form. Multipart bodies are read part by part so an
// empty file input keeps its slot in the image list.
func readSubmission(c *gin.Context) (*submissionForm, error) {
	reader, err := c.Request.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return &submissionForm{
			location: c.PostForm("location"),
			subject:  c.PostForm("subject"),
			times:    c.PostFormArray("entry_time"),
			descs:    c.PostFormArray("entry_desc"),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	form := &submissionForm{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read multipart body: %w", err)
		}

		switch part.FormName() {
		case "entry_image":
			filename := part.FileName()
			if filename == "" {
				form.images = append(form.images, nil)
				break
			}
			data, err := io.ReadAll(part)
			if err != nil {
				return nil, fmt.Errorf("failed to read upload %q: %w", filename, err)
			}
			if len(data) == 0 {
				form.images = append(form.images, nil)
				break
			}
			form.images = append(form.images, &engine.Upload{Filename: filename, Content: bytes.NewReader(data)})
		case "location", "subject", "entry_time", "entry_desc":
			value, err := readField(part)
			if err != nil {
				return nil, err
			}
			switch part.FormName() {
			case "location":
				form.location = value
			case "subject":
				form.subject = value
			case "entry_time":
				form.times = append(form.times, value)
			case "entry_desc":
				form.descs = append(form.descs, value)
			}
		}
		_ = part.Close()
	}
	return form, nil
}

func readField(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFieldSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read form field: %w", err)
	}
	if len(data) > maxFieldSize {
		return "", fmt.Errorf("form field exceeds %d bytes", maxFieldSize)
	}
	return string(data), nil
}
