package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	carapp "rentcar/internal/app/handlers/cars"
	"rentcar/internal/app/queries"
)

type CarHTTP interface {
	Create(c *gin.Context)
	Mine(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	SetAvailability(c *gin.Context)
	UploadPhoto(c *gin.Context)
	Delete(c *gin.Context)
}

type CarHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h CarHandler) Create(c *gin.Context) {
	var cmd carapp.CreateCarCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cmd.Actor = actorFrom(c)
	result, err := commands.Dispatch[carapp.CreateCarCommand, *carapp.CarResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, result.Message, gin.H{"car": result.Car})
}

func (h CarHandler) Mine(c *gin.Context) {
	result, err := queries.Ask[carapp.ListMyCarsQuery, dto.CarCollection](c.Request.Context(), h.Queries, carapp.ListMyCarsQuery{Actor: actorFrom(c)})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"cars": result.Items})
}

func (h CarHandler) Get(c *gin.Context) {
	result, err := queries.Ask[carapp.GetCarQuery, dto.CarDTO](c.Request.Context(), h.Queries, carapp.GetCarQuery{CarID: c.Param("id")})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"car": result})
}

func (h CarHandler) Update(c *gin.Context) {
	var cmd carapp.UpdateCarCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cmd.Actor = actorFrom(c)
	cmd.CarID = c.Param("id")
	result, err := commands.Dispatch[carapp.UpdateCarCommand, *carapp.CarResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"car": result.Car})
}

func (h CarHandler) SetAvailability(c *gin.Context) {
	var cmd carapp.SetAvailabilityCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cmd.Actor = actorFrom(c)
	cmd.CarID = c.Param("id")
	result, err := commands.Dispatch[carapp.SetAvailabilityCommand, *carapp.CarResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"car": result.Car})
}

// UploadPhoto takes one multipart "file". kind=document stores a registration document.
func (h CarHandler) UploadPhoto(c *gin.Context) {
	if _, ok := requireUser(c, h.Logger); !ok {
		return
	}
	kind := carapp.FileKind(strings.ToLower(strings.TrimSpace(c.DefaultPostForm("kind", string(carapp.FileImage)))))
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	upload, err := readUpload(fh, kind == carapp.FileDocument)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := commands.Dispatch[carapp.UploadCarFileCommand, *carapp.CarResult](c.Request.Context(), h.Commands, carapp.UploadCarFileCommand{
		Actor: actorFrom(c),
		CarID: c.Param("id"),
		Kind:  kind,
		File:  upload,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, result.Message, gin.H{"car": result.Car})
}

func (h CarHandler) Delete(c *gin.Context) {
	result, err := commands.Dispatch[carapp.DeleteCarCommand, *carapp.DeleteResult](c.Request.Context(), h.Commands, carapp.DeleteCarCommand{
		Actor: actorFrom(c),
		CarID: c.Param("id"),
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, result.Message, gin.H{"carId": result.CarID})
}

var _ CarHTTP = CarHandler{}
