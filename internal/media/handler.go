package media

import (
	"fmt"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/pkg/response"
	"github.com/nexus-community/backend/pkg/storage"
)

// Handler issues pre-signed upload URLs for community media. Clients upload
// directly to object storage and then attach the returned URL to the
// community or post record.
type Handler struct {
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a media handler. s3 may be nil when object storage is
// not configured; endpoints then report 503.
func NewHandler(s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{s3: s3, logger: logger}
}

// UploadRequest is the body of POST /communities/:id/media/presign.
type UploadRequest struct {
	Kind        string  `json:"kind" binding:"required,oneof=avatar banner post"`
	Filename    string  `json:"filename" binding:"required"`
	ContentType string  `json:"content_type"`
	PostID      *string `json:"post_id"`
}

// Presign handles POST /communities/:id/media/presign.
func (h *Handler) Presign(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	if h.s3 == nil {
		response.ServiceUnavailable(c, "media storage is not configured")
		return
	}
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if !storage.ValidateMediaFileType(req.ContentType, req.Filename) {
		response.BadRequest(c, "unsupported media type")
		return
	}

	// Object names embed a random component so re-uploads never collide.
	filename := fmt.Sprintf("%s%s", uuid.New().String(), strings.ToLower(path.Ext(req.Filename)))
	var key string
	switch req.Kind {
	case "avatar":
		key = storage.AvatarKey(communityID.String(), filename)
	case "banner":
		key = storage.BannerKey(communityID.String(), filename)
	case "post":
		if req.PostID == nil {
			response.BadRequest(c, "post_id is required for post media")
			return
		}
		postID, err := uuid.Parse(*req.PostID)
		if err != nil {
			response.BadRequest(c, "invalid post id")
			return
		}
		key = storage.PostMediaKey(communityID.String(), postID.String(), filename)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	uploadURL, err := h.s3.PresignUpload(c.Request.Context(), key, contentType)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to create upload URL")
		return
	}

	response.OK(c, gin.H{
		"upload_url":   uploadURL,
		"object_url":   h.s3.ObjectURL(key),
		"key":          key,
		"content_type": contentType,
		"expires_in":   int(h.s3.PresignExpire().Seconds()),
	})
}
