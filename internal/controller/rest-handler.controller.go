package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jamhub/server/internal/service/room"
	"github.com/jamhub/server/pkg/rest"
)

type CreateRoomInput struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	IsPrivate bool   `json:"is_private"`
	IsHidden  bool   `json:"is_hidden"`
	RoomType  string `json:"room_type" validate:"omitempty,oneof=band practice lesson"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var input CreateRoomInput
	if err := rest.ReadJSON(r, &input); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read create room body", "error", err)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "invalid request body"})
		return
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"errors": validationErrors})
		return
	}

	createRoomResp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Name:      input.Name,
		IsPrivate: input.IsPrivate,
		IsHidden:  input.IsHidden,
		RoomType:  input.RoomType,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to create room", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to create room"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{
		"room_id":       createRoomResp.RoomId,
		"owner_user_id": createRoomResp.OwnerUserId,
	})
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListRooms(r.Context())
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to list rooms", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to list rooms"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"rooms": rooms})
}

func (c controller) getRoomState(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "room id is required"})
		return
	}

	state, err := c.roomService.GetRoomState(r.Context(), roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}
		c.logger.WarnContext(r.Context(), "failed to get room state", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to get room state"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"room": state})
}
