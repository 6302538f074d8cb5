package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/middlewares"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxImageSizeBytes  int64 = 5 * 1024 * 1024
	maxImportSizeBytes int64 = 20 * 1024 * 1024
)

const (
	uploadKindClinicLogo    = "clinic-logo"
	uploadKindProviderPhoto = "provider-photo"
	uploadKindImportFile    = "import-file"
)

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var importMimeTypes = map[string]bool{
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/csv": true,
}

func registerUploadRoutes(v1 *gin.RouterGroup) {
	uploads := v1.Group("/uploads", middlewares.RequireModuleAction("Image"))
	uploads.POST("/clinic-logo", imageUploadHandler(uploadKindClinicLogo))
	uploads.POST("/provider-photo", imageUploadHandler(uploadKindProviderPhoto))
	uploads.POST("/import-file", importFileUploadHandler())
	uploads.POST("/sign", signUploadHandler())
	uploads.POST("/complete", completeUploadHandler())
	uploads.GET("/object", uploadObjectHandler())
}

// Object keys are always <clinicId>/<folder>/<uuid><ext> so the tenant
// prefix check on reads stays a plain string comparison.
func uploadFolder(kind string) string {
	switch kind {
	case uploadKindClinicLogo:
		return "logos"
	case uploadKindProviderPhoto:
		return "providers"
	case uploadKindImportFile:
		return "imports"
	}
	return ""
}

func uploadSizeLimit(kind string) int64 {
	if kind == uploadKindImportFile {
		return maxImportSizeBytes
	}
	return maxImageSizeBytes
}

func readUploadFile(c *gin.Context, limit int64) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return "", nil, false
	}
	if fileHeader.Size > limit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file size exceeds %dMB limit", limit/(1024*1024))})
		return "", nil, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open file"})
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil || int64(len(data)) > limit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file size exceeds %dMB limit", limit/(1024*1024))})
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

func imageUploadHandler(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		clinicId, ok := utils.GetClinicIdFromContext(ctx)
		if !ok || clinicId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		filename, data, ok := readUploadFile(c, maxImageSizeBytes)
		if !ok {
			return
		}
		mimeType := http.DetectContentType(data)
		if !imageMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		ext := strings.ToLower(filepath.Ext(filename))
		if ext == "" {
			ext = extensionFromMimeType(mimeType)
		}
		objectKey := path.Join(clinicId, uploadFolder(kind), uuid.New().String()+ext)

		if err := utils.UploadBytesToGCS(ctx, objectKey, data, mimeType); err != nil {
			logUploadError(logger, ctx, err, kind)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}

		response := gin.H{
			"imageUrl":  utils.BuildObjectAccessURL(objectKey),
			"objectKey": objectKey,
		}
		if kind == uploadKindProviderPhoto {
			thumbnailKey, err := writeThumbnail(ctx, objectKey, data)
			if err != nil {
				logUploadError(logger, ctx, err, kind)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate thumbnail"})
				return
			}
			response["thumbnailUrl"] = utils.BuildObjectAccessURL(thumbnailKey)
			response["thumbnailObjectKey"] = thumbnailKey
		}

		logger.WithFields(logrus.Fields{
			"tenant_id":  clinicId,
			"kind":       kind,
			"mime_type":  mimeType,
			"size":       len(data),
			"object_key": objectKey,
		}).Info("[upload.image]")

		c.JSON(http.StatusOK, response)
	}
}

func importFileUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		clinicId, ok := utils.GetClinicIdFromContext(ctx)
		if !ok || clinicId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		filename, data, ok := readUploadFile(c, maxImportSizeBytes)
		if !ok {
			return
		}

		ext := strings.ToLower(filepath.Ext(filename))
		mimeType := http.DetectContentType(data)
		// xlsx detects as zip and csv as plain text.
		if mimeType == "application/zip" && ext == ".xlsx" {
			mimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		}
		if strings.HasPrefix(mimeType, "text/plain") && ext == ".csv" {
			mimeType = "text/csv"
		}
		if !importMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}
		if ext == "" {
			ext = extensionFromMimeType(mimeType)
		}

		objectKey := path.Join(clinicId, uploadFolder(uploadKindImportFile), uuid.New().String()+ext)
		if err := utils.UploadBytesToGCS(ctx, objectKey, data, mimeType); err != nil {
			logUploadError(logger, ctx, err, uploadKindImportFile)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store file"})
			return
		}

		logger.WithFields(logrus.Fields{
			"tenant_id":  clinicId,
			"file_name":  filename,
			"mime_type":  mimeType,
			"size":       len(data),
			"object_key": objectKey,
		}).Info("[upload.import-file]")

		c.JSON(http.StatusOK, gin.H{
			"fileUrl":   utils.BuildObjectAccessURL(objectKey),
			"objectKey": objectKey,
		})
	}
}

// ----- signed direct-to-bucket flow -----

type uploadSignRequest struct {
	FileName string `json:"fileName" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
	Size     int64  `json:"size" binding:"required"`
	Kind     string `json:"kind" binding:"required"`
}

type uploadSignResponse struct {
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectKey string            `json:"objectKey"`
	AccessURL string            `json:"accessUrl"`
	ExpiresAt string            `json:"expiresAt"`
}

func signUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		clinicId, ok := utils.GetClinicIdFromContext(ctx)
		if !ok || clinicId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req uploadSignRequest
		if !bindJSON(c, &req) {
			return
		}

		folder := uploadFolder(req.Kind)
		if folder == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind"})
			return
		}
		limit := uploadSizeLimit(req.Kind)
		if req.Size <= 0 || req.Size > limit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file size exceeds %dMB limit", limit/(1024*1024))})
			return
		}
		if req.Kind == uploadKindImportFile {
			if !importMimeTypes[req.MimeType] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
				return
			}
		} else if !imageMimeTypes[req.MimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		ext := strings.ToLower(filepath.Ext(req.FileName))
		if ext == "" {
			ext = extensionFromMimeType(req.MimeType)
		}
		if ext == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file extension is required"})
			return
		}

		if utils.GetStorageProvider() != utils.StorageProviderGCS {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storage provider not supported"})
			return
		}

		objectKey := path.Join(clinicId, folder, uuid.New().String()+ext)
		signed, err := utils.SignUpload(ctx, objectKey, req.MimeType, 15*time.Minute)
		if err != nil {
			logUploadError(logger, ctx, err, req.Kind)
			message := "failed to sign upload"
			if !strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
				message = fmt.Sprintf("failed to sign upload: %v", err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": message})
			return
		}

		logger.WithFields(logrus.Fields{
			"tenant_id":  clinicId,
			"kind":       req.Kind,
			"mime_type":  req.MimeType,
			"size":       req.Size,
			"object_key": objectKey,
		}).Info("[upload.sign]")

		c.JSON(http.StatusOK, uploadSignResponse{
			UploadURL: signed.UploadURL,
			Method:    signed.Method,
			Headers:   signed.Headers,
			ObjectKey: signed.ObjectKey,
			AccessURL: signed.AccessURL,
			ExpiresAt: signed.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

type uploadCompleteRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
	Thumbnail bool   `json:"thumbnail"`
}

func completeUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		ctx := c.Request.Context()

		clinicId, ok := utils.GetClinicIdFromContext(ctx)
		if !ok || clinicId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req uploadCompleteRequest
		if !bindJSON(c, &req) {
			return
		}
		if !strings.HasPrefix(req.ObjectKey, clinicId+"/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object key"})
			return
		}

		// The client PUTs straight to the bucket; confirm it actually did.
		exists, err := utils.ObjectExistsInGCS(ctx, req.ObjectKey)
		if err != nil {
			logUploadError(logger, ctx, err, "complete")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage check failed"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "object has not been uploaded"})
			return
		}

		response := gin.H{
			"objectKey": req.ObjectKey,
			"fileUrl":   utils.BuildObjectAccessURL(req.ObjectKey),
		}
		if req.Thumbnail {
			thumbnailKey, err := createThumbnail(ctx, req.ObjectKey)
			if err != nil {
				logUploadError(logger, ctx, err, "complete")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate thumbnail"})
				return
			}
			response["thumbnailUrl"] = utils.BuildObjectAccessURL(thumbnailKey)
			response["thumbnailObjectKey"] = thumbnailKey
		}

		logger.WithFields(logrus.Fields{
			"tenant_id":  clinicId,
			"object_key": req.ObjectKey,
			"status":     "completed",
		}).Info("[upload.complete]")

		c.JSON(http.StatusOK, response)
	}
}

func uploadObjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		objectKey := strings.TrimSpace(c.Query("key"))
		if objectKey == "" || strings.Contains(objectKey, "..") || strings.HasPrefix(objectKey, "/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
			return
		}
		isAdmin, _ := utils.GetIsAdminFromContext(ctx)
		if !isAdmin {
			clinicId, ok := utils.GetClinicIdFromContext(ctx)
			if !ok || clinicId == "" || !strings.HasPrefix(objectKey, clinicId+"/") {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object key"})
				return
			}
		}

		if utils.GetStorageProvider() != utils.StorageProviderGCS {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storage provider not supported"})
			return
		}

		client, err := utils.GetGCSClient(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage client error"})
			return
		}
		defer client.Close()

		bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
		if bucket == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "GCS_BUCKET is required"})
			return
		}
		obj := client.Bucket(bucket).Object(objectKey)
		attrs, err := obj.Attrs(ctx)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		reader, err := obj.NewReader(ctx)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "object not found"})
			return
		}
		defer reader.Close()

		if attrs != nil && attrs.ContentType != "" {
			c.Writer.Header().Set("Content-Type", attrs.ContentType)
		}
		if attrs != nil && attrs.Size > 0 {
			c.Writer.Header().Set("Content-Length", fmt.Sprintf("%d", attrs.Size))
		}
		c.Status(http.StatusOK)
		_, _ = io.Copy(c.Writer, reader)
	}
}

// writeThumbnail resizes image bytes already in hand and stores the result
// next to the original under a thumbnails/ segment.
func writeThumbnail(ctx context.Context, objectKey string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
		return "", err
	}

	thumbnailKey := thumbnailObjectKey(objectKey)
	if err := utils.UploadBytesToGCS(ctx, thumbnailKey, buf.Bytes(), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbnailKey, nil
}

// createThumbnail reads the original back from the bucket; used after
// signed uploads where the bytes never pass through this process.
func createThumbnail(ctx context.Context, objectKey string) (string, error) {
	client, err := utils.GetGCSClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return "", errors.New("GCS_BUCKET is required")
	}

	reader, err := client.Bucket(bucket).Object(objectKey).NewReader(ctx)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxImageSizeBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxImageSizeBytes {
		return "", errors.New("file size exceeds 5MB limit")
	}

	return writeThumbnail(ctx, objectKey, data)
}

func thumbnailObjectKey(objectKey string) string {
	dir := path.Dir(objectKey)
	filename := path.Base(objectKey)
	return path.Join(dir, "thumbnails", filename)
}

func extensionFromMimeType(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/vnd.ms-excel":
		return ".xls"
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "text/csv":
		return ".csv"
	default:
		return ""
	}
}

func logUploadError(logger *logrus.Logger, ctx context.Context, err error, kind string) {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	logger.WithFields(logrus.Fields{
		"error":          err.Error(),
		"kind":           kind,
		"correlation_id": correlationId,
	}).Error("[upload.error]")
}
