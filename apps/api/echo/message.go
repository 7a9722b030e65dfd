package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core/message"
)

type messageApi struct {
	svc *message.Service
}

// registerMessageAPI expects g to be authenticated.
func registerMessageAPI(g *echo.Group, svc *message.Service) {
	api := messageApi{svc: svc}

	g.POST("/send", api.send)
	g.GET("/conversations", api.conversations)
	g.GET("/conversation/:userId/:courseId", api.conversation)
	g.PUT("/read/:userId/:courseId", api.markAsRead)
	g.GET("/unread-count", api.unreadCount)
}

func (api *messageApi) send(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}

	msg, err := api.svc.Send(ctx.Request().Context(), getPrincipal(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, echo.Map{"message": msg})
}

func (api *messageApi) conversation(ctx echo.Context) error {
	msgs, err := api.svc.Conversation(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("userId"), ctx.Param("courseId"))
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

func (api *messageApi) conversations(ctx echo.Context) error {
	convs, err := api.svc.Conversations(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	if convs == nil {
		convs = []message.Conversation{}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"conversations": convs})
}

func (api *messageApi) markAsRead(ctx echo.Context) error {
	n, err := api.svc.MarkAsRead(ctx.Request().Context(), getPrincipal(ctx), ctx.Param("userId"), ctx.Param("courseId"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Messages marked as read", "updated": n})
}

func (api *messageApi) unreadCount(ctx echo.Context) error {
	n, err := api.svc.UnreadCount(ctx.Request().Context(), getPrincipal(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"unreadCount": n})
}
