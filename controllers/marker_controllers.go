package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/trashunter/middlewares"
	"github.com/yeremiapane/trashunter/services"
	"github.com/yeremiapane/trashunter/utils"
)

const multipartMemory = 8 << 20

type MarkerController struct {
	Service        *services.MarkerService
	MaxUploadBytes int64
}

func NewMarkerController(svc *services.MarkerService, maxUploadBytes int64) *MarkerController {
	return &MarkerController{Service: svc, MaxUploadBytes: maxUploadBytes}
}

// GetAllMarkers returns the bare marker array the map client polls.
func (mc *MarkerController) GetAllMarkers(c *gin.Context) {
	markers, err := mc.Service.ListMarkers(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, markers)
}

func (mc *MarkerController) GetMarkerByID(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	marker, err := mc.Service.GetMarker(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, marker)
}

// CreateMarker handles a pollution report: multipart lat, lng, note, file.
func (mc *MarkerController) CreateMarker(c *gin.Context) {
	if !mc.parseForm(c) {
		return
	}

	lat, err := parseCoordinate(c.PostForm("lat"), "lat", 90)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	lng, err := parseCoordinate(c.PostForm("lng"), "lng", 180)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	upload, closeFile, ok := mc.formFile(c)
	if !ok {
		return
	}
	defer closeFile()

	marker, err := mc.Service.SubmitReport(c.Request.Context(), services.ReportInput{
		Lat:        lat,
		Lng:        lng,
		Note:       c.PostForm("note"),
		File:       upload,
		ReporterID: middlewares.HunterID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, marker)
}

// CleanMarker handles a cleanup confirmation: multipart user_lat, user_lng,
// file. The camelCase field names are accepted as well.
func (mc *MarkerController) CleanMarker(c *gin.Context) {
	if !mc.parseForm(c) {
		return
	}

	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	userLat, err := parseCoordinate(formValue(c, "user_lat", "userLat"), "user_lat", 90)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	userLng, err := parseCoordinate(formValue(c, "user_lng", "userLng"), "user_lng", 180)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	upload, closeFile, ok := mc.formFile(c)
	if !ok {
		return
	}
	defer closeFile()

	marker, err := mc.Service.ConfirmCleanup(c.Request.Context(), services.CleanupInput{
		MarkerID:  id,
		UserLat:   userLat,
		UserLng:   userLng,
		File:      upload,
		CleanerID: middlewares.HunterID(c),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, marker)
}

// parseForm caps the body at MaxUploadBytes and parses the multipart form.
// On failure it has already responded.
func (mc *MarkerController) parseForm(c *gin.Context) bool {
	if mc.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, mc.MaxUploadBytes)
	}

	err := c.Request.ParseMultipartForm(multipartMemory)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		utils.RespondError(c, http.StatusRequestEntityTooLarge,
			fmt.Errorf("upload is larger than %d bytes", mc.MaxUploadBytes))
		return false
	}
	utils.RespondError(c, http.StatusBadRequest, errors.New("invalid multipart form"))
	return false
}

// formFile opens the "file" part. On failure it has already responded.
func (mc *MarkerController) formFile(c *gin.Context) (services.Upload, func(), bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("file is required"))
		return services.Upload{}, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("error processing uploaded file"))
		return services.Upload{}, nil, false
	}

	return services.Upload{Filename: fh.Filename, Content: f}, func() { f.Close() }, true
}

func formValue(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v, ok := c.GetPostForm(n); ok {
			return v
		}
	}
	return ""
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.New("invalid marker id")
	}
	return uint(id), nil
}

func parseCoordinate(s, field string, limit float64) (float64, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, fmt.Errorf("invalid %s", field)
	}
	return v, nil
}
