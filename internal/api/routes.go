package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/pyronotes/server/domain/entities"
	"github.com/pyronotes/server/domain/repositories"
	"github.com/pyronotes/server/internal/auth"
	"github.com/pyronotes/server/internal/websocket"
	"github.com/pyronotes/server/usecase"
)

// maxUploadBytes bounds the size of one uploaded audio blob
const maxUploadBytes = 100 << 20

// Handler holds the dependencies shared by all HTTP handlers
type Handler struct {
	hub         *websocket.Hub
	lectures    repositories.LectureRepository
	folders     repositories.FolderRepository
	audio       repositories.AudioStore
	transcriber *usecase.TranscriptionService
	generator   *usecase.GenerationService
	logger      *zap.Logger
}

// NewHandler creates the API handler
func NewHandler(
	hub *websocket.Hub,
	lectures repositories.LectureRepository,
	folders repositories.FolderRepository,
	audio repositories.AudioStore,
	transcriber *usecase.TranscriptionService,
	generator *usecase.GenerationService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		hub:         hub,
		lectures:    lectures,
		folders:     folders,
		audio:       audio,
		transcriber: transcriber,
		generator:   generator,
		logger:      logger,
	}
}

// InitRoutes initializes all API routes
func (h *Handler) InitRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "pyronotes-server",
		})
	})

	v1 := e.Group("/api/v1")

	// Transcription APIs
	v1.POST("/transcriptions", h.batchTranscribe)
	v1.POST("/transcriptions/start", h.startSession)
	v1.GET("/transcriptions/:id/stream", h.streamSession)

	// Lecture APIs
	v1.GET("/lectures", h.listLectures)
	v1.POST("/lectures", h.createLecture)
	v1.GET("/lectures/:id", h.getLecture)
	v1.PATCH("/lectures/:id", h.updateLecture)
	v1.DELETE("/lectures/:id", h.deleteLecture)
	v1.POST("/lectures/:id/audio", h.uploadAudio)
	v1.GET("/lectures/:id/audio", h.downloadAudio)

	// Folder APIs
	v1.POST("/folders", h.createFolder)
	v1.GET("/folders", h.listFolders)
	v1.GET("/folders/:id", h.getFolder)
	v1.DELETE("/folders/:id", h.deleteFolder)

	// Study material generation
	v1.POST("/generate", h.generate)
}

// batchTranscribe handles a whole-file upload: the audio is stored,
// transcribed in one pass and analyzed for insights before the lecture
// is returned in a terminal state.
func (h *Handler) batchTranscribe(c echo.Context) error {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_audio",
			Message: "An audio file is required",
		})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "audio_too_large",
			Message: "Audio file exceeds the upload limit",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded audio", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "upload_failed",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded audio", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "upload_failed",
		})
	}

	title := c.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
	}
	if title == "" {
		title = "Untitled lecture"
	}

	lecture := entities.NewLecture(title, entities.LectureStatusProcessing)
	if folderID := c.FormValue("folder_id"); folderID != "" {
		objectID, err := primitive.ObjectIDFromHex(folderID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_folder_id",
				Message: "Folder ID is not a valid identifier",
			})
		}
		lecture.FolderID = &objectID
	}

	ref, err := h.audio.Save(data, filepath.Ext(fileHeader.Filename))
	if err != nil {
		h.logger.Error("Failed to store audio blob", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "storage_failed",
		})
	}
	lecture.AudioPath = ref

	if err := h.lectures.Create(c.Request().Context(), lecture); err != nil {
		h.logger.Error("Failed to create lecture", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}

	config := audioConfigFromForm(c)
	transcript, insights, err := h.transcriber.TranscribeAndAnalyze(c.Request().Context(), data, config)
	if err != nil {
		h.logger.Error("Batch transcription failed",
			zap.String("lecture_id", lecture.ID.Hex()),
			zap.Error(err))
		if saveErr := h.lectures.SaveSessionResult(c.Request().Context(), lecture.ID.Hex(), "", nil, entities.LectureStatusError); saveErr != nil {
			h.logger.Error("Failed to mark lecture errored", zap.Error(saveErr))
		}
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "transcription_failed",
			Message: "The audio could not be transcribed",
		})
	}

	if err := h.lectures.SaveSessionResult(c.Request().Context(), lecture.ID.Hex(), transcript, insights, entities.LectureStatusReady); err != nil {
		h.logger.Error("Failed to persist transcription result", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}

	lecture.Transcript = transcript
	lecture.Insights = insights
	lecture.Status = entities.LectureStatusReady
	return c.JSON(http.StatusCreated, lecture)
}

// startSession creates a lecture in the recording state and issues the
// stream token that authorizes its websocket connection.
func (h *Handler) startSession(c echo.Context) error {
	var req StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Title == "" {
		req.Title = "Untitled lecture"
	}

	lecture := entities.NewLecture(req.Title, entities.LectureStatusRecording)
	if req.FolderID != "" {
		objectID, err := primitive.ObjectIDFromHex(req.FolderID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_folder_id",
				Message: "Folder ID is not a valid identifier",
			})
		}
		lecture.FolderID = &objectID
	}

	if err := h.lectures.Create(c.Request().Context(), lecture); err != nil {
		h.logger.Error("Failed to create lecture", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}

	token, err := auth.GenerateStreamToken(lecture.ID.Hex())
	if err != nil {
		h.logger.Error("Failed to generate stream token",
			zap.String("lecture_id", lecture.ID.Hex()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "token_generation_failed",
		})
	}

	h.logger.Info("Live session started", zap.String("lecture_id", lecture.ID.Hex()))
	return c.JSON(http.StatusCreated, StartSessionResponse{
		Lecture:   lecture,
		Token:     token,
		ExpiresAt: time.Now().Add(auth.StreamTokenTTL),
	})
}

// streamSession upgrades an authorized request to the live websocket.
// The token comes from the query string because browser websocket
// clients cannot set headers; a Bearer header works too.
func (h *Handler) streamSession(c echo.Context) error {
	lectureID := c.Param("id")

	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "A stream token is required",
		})
	}

	claims, err := auth.ValidateStreamToken(token)
	if err != nil {
		h.logger.Warn("Stream connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired stream token",
		})
	}
	if claims.LectureID != lectureID {
		h.logger.Warn("Stream connection rejected: token lecture mismatch",
			zap.String("token_lecture_id", claims.LectureID),
			zap.String("lecture_id", lectureID))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "lecture_mismatch",
			Message: "Token does not authorize this lecture",
		})
	}

	return websocket.HandleStream(h.hub, c, lectureID, h.logger)
}

// createLecture records a lecture directly, e.g. an imported transcript
// that never passed through the audio pipeline
func (h *Handler) createLecture(c echo.Context) error {
	var req CreateLectureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_lecture",
			Message: "Title is required",
		})
	}

	lecture := entities.NewLecture(req.Title, entities.LectureStatusReady)
	lecture.Transcript = req.Transcript
	if req.FolderID != "" {
		objectID, err := primitive.ObjectIDFromHex(req.FolderID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_folder_id",
				Message: "Folder ID is not a valid identifier",
			})
		}
		lecture.FolderID = &objectID
	}

	if err := h.lectures.Create(c.Request().Context(), lecture); err != nil {
		h.logger.Error("Failed to create lecture", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}
	return c.JSON(http.StatusCreated, lecture)
}

func (h *Handler) listLectures(c echo.Context) error {
	lectures, err := h.lectures.List(c.Request().Context(), c.QueryParam("folder_id"))
	if err != nil {
		h.logger.Error("Failed to list lectures", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}
	return c.JSON(http.StatusOK, lectures)
}

func (h *Handler) getLecture(c echo.Context) error {
	lecture, err := h.lectures.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.lectureError(c, err)
	}
	return c.JSON(http.StatusOK, lecture)
}

func (h *Handler) updateLecture(c echo.Context) error {
	var req UpdateLectureRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	lecture, err := h.lectures.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.lectureError(c, err)
	}

	if req.Title != nil {
		lecture.Title = *req.Title
	}
	if req.FolderID != nil {
		if *req.FolderID == "" {
			lecture.FolderID = nil
		} else {
			objectID, err := primitive.ObjectIDFromHex(*req.FolderID)
			if err != nil {
				return c.JSON(http.StatusBadRequest, ErrorResponse{
					Error:   "invalid_folder_id",
					Message: "Folder ID is not a valid identifier",
				})
			}
			lecture.FolderID = &objectID
		}
	}

	if err := h.lectures.Update(c.Request().Context(), lecture); err != nil {
		return h.lectureError(c, err)
	}
	return c.JSON(http.StatusOK, lecture)
}

func (h *Handler) deleteLecture(c echo.Context) error {
	ctx := c.Request().Context()
	lecture, err := h.lectures.GetByID(ctx, c.Param("id"))
	if err != nil {
		return h.lectureError(c, err)
	}

	if lecture.AudioPath != "" {
		if err := h.audio.Delete(lecture.AudioPath); err != nil {
			// not fatal, the record removal matters more
			h.logger.Warn("Failed to delete audio blob",
				zap.String("ref", lecture.AudioPath),
				zap.Error(err))
		}
	}

	if err := h.lectures.Delete(ctx, lecture.ID.Hex()); err != nil {
		return h.lectureError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) uploadAudio(c echo.Context) error {
	ctx := c.Request().Context()
	lecture, err := h.lectures.GetByID(ctx, c.Param("id"))
	if err != nil {
		return h.lectureError(c, err)
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_audio",
			Message: "An audio file is required",
		})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "audio_too_large",
			Message: "Audio file exceeds the upload limit",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded audio", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "upload_failed",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded audio", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "upload_failed",
		})
	}

	ref, err := h.audio.Save(data, filepath.Ext(fileHeader.Filename))
	if err != nil {
		h.logger.Error("Failed to store audio blob", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "storage_failed",
		})
	}

	previous := lecture.AudioPath
	lecture.AudioPath = ref
	if v := c.FormValue("duration_sec"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			lecture.DurationSec = &seconds
		}
	}

	if err := h.lectures.Update(ctx, lecture); err != nil {
		return h.lectureError(c, err)
	}

	if previous != "" && previous != ref {
		if err := h.audio.Delete(previous); err != nil {
			h.logger.Warn("Failed to delete replaced audio blob",
				zap.String("ref", previous),
				zap.Error(err))
		}
	}
	return c.JSON(http.StatusOK, lecture)
}

func (h *Handler) downloadAudio(c echo.Context) error {
	lecture, err := h.lectures.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.lectureError(c, err)
	}
	if lecture.AudioPath == "" {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "no_audio",
			Message: "Lecture has no stored audio",
		})
	}

	reader, err := h.audio.Open(lecture.AudioPath)
	if err != nil {
		h.logger.Error("Failed to open audio blob",
			zap.String("ref", lecture.AudioPath),
			zap.Error(err))
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no_audio",
		})
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(lecture.AudioPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, contentType, reader)
}

func (h *Handler) createFolder(c echo.Context) error {
	var req CreateFolderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	folder := entities.NewFolder(req.Name)
	if err := folder.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_folder",
			Message: err.Error(),
		})
	}

	if err := h.folders.Create(c.Request().Context(), folder); err != nil {
		h.logger.Error("Failed to create folder", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}
	return c.JSON(http.StatusCreated, FolderResponse{Folder: folder})
}

func (h *Handler) listFolders(c echo.Context) error {
	ctx := c.Request().Context()
	folders, err := h.folders.List(ctx)
	if err != nil {
		h.logger.Error("Failed to list folders", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}

	responses := make([]FolderResponse, 0, len(folders))
	for _, folder := range folders {
		count, err := h.lectures.CountByFolder(ctx, folder.ID.Hex())
		if err != nil {
			h.logger.Error("Failed to count lectures",
				zap.String("folder_id", folder.ID.Hex()),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "persistence_failed",
			})
		}
		responses = append(responses, FolderResponse{Folder: folder, LectureCount: count})
	}
	return c.JSON(http.StatusOK, responses)
}

func (h *Handler) getFolder(c echo.Context) error {
	ctx := c.Request().Context()
	folder, err := h.folders.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "folder_not_found",
			})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_folder_id",
			Message: err.Error(),
		})
	}

	count, err := h.lectures.CountByFolder(ctx, folder.ID.Hex())
	if err != nil {
		h.logger.Error("Failed to count lectures", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}
	return c.JSON(http.StatusOK, FolderResponse{Folder: folder, LectureCount: count})
}

// deleteFolder removes the folder record and detaches its lectures,
// which survive unassigned.
func (h *Handler) deleteFolder(c echo.Context) error {
	ctx := c.Request().Context()
	folderID := c.Param("id")

	if err := h.lectures.UnassignFolder(ctx, folderID); err != nil {
		h.logger.Error("Failed to unassign lectures",
			zap.String("folder_id", folderID),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_folder_id",
			Message: err.Error(),
		})
	}

	if err := h.folders.Delete(ctx, folderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "folder_not_found",
			})
		}
		h.logger.Error("Failed to delete folder", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "persistence_failed",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// generate produces study material from one lecture or a whole folder
func (h *Handler) generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	kind, err := entities.ParseMaterialKind(req.Type)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_type",
			Message: err.Error(),
		})
	}

	transcripts, errResp := h.collectTranscripts(c, req.Scope, req.ID)
	if errResp != nil {
		return errResp
	}

	material, err := h.generator.Generate(c.Request().Context(), transcripts, kind)
	if err != nil {
		if errors.Is(err, usecase.ErrGenerationFailed) {
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error:   "generation_failed",
				Message: "The material could not be generated",
			})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, GenerateResponse{
		Type:    material.Kind,
		Content: material.Content(),
	})
}

// collectTranscripts resolves the generation scope to the transcripts
// of its ready lectures. A non-nil second return is the error response
// already written.
func (h *Handler) collectTranscripts(c echo.Context, scope, id string) ([]string, error) {
	ctx := c.Request().Context()

	switch scope {
	case "lecture":
		lecture, err := h.lectures.GetByID(ctx, id)
		if err != nil {
			return nil, h.lectureError(c, err)
		}
		if lecture.Status != entities.LectureStatusReady || lecture.Transcript == "" {
			return nil, c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "lecture_not_ready",
				Message: "Lecture has no transcript to generate from",
			})
		}
		return []string{lecture.Transcript}, nil

	case "folder":
		lectures, err := h.lectures.List(ctx, id)
		if err != nil {
			return nil, c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_folder_id",
				Message: err.Error(),
			})
		}
		transcripts := make([]string, 0, len(lectures))
		for _, lecture := range lectures {
			if lecture.Status == entities.LectureStatusReady && lecture.Transcript != "" {
				transcripts = append(transcripts, lecture.Transcript)
			}
		}
		if len(transcripts) == 0 {
			return nil, c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "folder_empty",
				Message: "Folder has no transcribed lectures",
			})
		}
		return transcripts, nil
	}

	return nil, c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_scope",
		Message: "Scope must be lecture or folder",
	})
}

func (h *Handler) lectureError(c echo.Context, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "lecture_not_found",
		})
	}
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_lecture_id",
		Message: err.Error(),
	})
}

// audioConfigFromForm reads optional recognition settings from the
// upload form, defaulting to the capture format the web client records.
func audioConfigFromForm(c echo.Context) repositories.AudioConfig {
	config := repositories.AudioConfig{
		SampleRate: 48000,
		Encoding:   "WEBM_OPUS",
		Language:   "en-US",
	}
	if v := c.FormValue("sample_rate"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
			config.SampleRate = rate
		}
	}
	if v := c.FormValue("encoding"); v != "" {
		config.Encoding = v
	}
	if v := c.FormValue("language"); v != "" {
		config.Language = v
	}
	return config
}
