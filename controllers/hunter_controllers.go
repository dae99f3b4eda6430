package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/trashunter/middlewares"
	"github.com/yeremiapane/trashunter/services"
	"github.com/yeremiapane/trashunter/utils"
)

type HunterController struct {
	Service *services.HunterService
}

func NewHunterController(svc *services.HunterService) *HunterController {
	return &HunterController{Service: svc}
}

// Register creates a hunter account
func (hc *HunterController) Register(c *gin.Context) {
	var req struct {
		FullName string `json:"full_name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	hunter, err := hc.Service.Register(c.Request.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("New hunter registered: %s", hunter.Email)

	utils.RespondJSON(c, http.StatusCreated, "Hunter registered", gin.H{
		"hunter_id": hunter.ID,
	})
}

// Login exchanges credentials for a JWT
func (hc *HunterController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	token, err := hc.Service.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
	})
}

func (hc *HunterController) Me(c *gin.Context) {
	id := middlewares.HunterID(c)
	if id == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}

	hunter, err := hc.Service.Profile(c.Request.Context(), *id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile", hunter)
}

// Leaderboard lists the top hunters with a positive score.
func (hc *HunterController) Leaderboard(c *gin.Context) {
	hunters, err := hc.Service.Leaderboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Leaderboard", hunters)
}
