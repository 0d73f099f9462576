package setup

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"nongxian/apperr"
	"nongxian/utils"
)

// initTimeout bounds a whole initialization run.
const initTimeout = 2 * time.Minute

// StatusHandler answers GET /api/setup/status.
func (in *Initializer) StatusHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s, err := in.CheckSystemInitialized(ctx)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, s)
}

type initResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Events  []Progress `json:"data"`
}

// InitializeHandler runs the whole sequence and returns every progress event.
func (in *Initializer) InitializeHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var admin AdminAccount
	if err := utils.DecodeJSON(r, &admin); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), initTimeout)
	defer cancel()

	events := []Progress{}
	err := in.InitializeAll(ctx, admin, func(p Progress) { events = append(events, p) })
	if err != nil {
		status := apperr.HTTPStatus(apperr.KindOf(err))
		utils.RespondWithJSON(w, status, initResponse{Error: apperr.MessageOf(err, "系統初始化失敗"), Events: events})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, initResponse{Success: true, Events: events})
}

// wsResult is the last frame sent on the progress socket.
type wsResult struct {
	Done    bool   `json:"done"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// WebSocketHandler streams progress live. The client sends one AdminAccount
// frame; the server answers with a frame per event, then a result frame,
// then closes.
func (in *Initializer) WebSocketHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := in.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("setup ws upgrade:", err)
		return
	}
	defer conn.Close()

	var admin AdminAccount
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	if err := conn.ReadJSON(&admin); err != nil {
		log.Println("setup ws read:", err)
		conn.WriteJSON(wsResult{Done: true, Error: "請求格式錯誤"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	err = in.InitializeAll(ctx, admin, func(p Progress) {
		if werr := conn.WriteJSON(p); werr != nil {
			log.Println("setup ws write:", werr)
		}
	})
	res := wsResult{Done: true, Success: err == nil}
	if err != nil {
		res.Error = apperr.MessageOf(err, "系統初始化失敗")
	}
	if err := conn.WriteJSON(res); err != nil {
		log.Println("setup ws write:", err)
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
