package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"prism-board/board"
	"prism-board/domain"
)

// Register wires up all API routes on the provided Echo instance. deduper may be nil, in
// which case posted commands are not deduplicated.
func Register(e *echo.Echo, boards Boards, deduper Deduper, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.GET("/healthz", healthz())

	g := e.Group("/api/boards/:board", GzipRequestMiddleware())
	g.GET("/columns", getColumns(boards))
	g.GET("/tasks", getTasks(boards))
	g.POST("/commands", postCommands(boards, deduper, logger))
	g.PUT("/columns/:status/title", putColumnTitle(boards))

	g.GET("/drag", getDrag(boards))
	g.POST("/drag/start", postDragStart(boards))
	g.POST("/drag/hover-column", postHoverColumn(boards))
	g.POST("/drag/hover-task", postHoverTask(boards))
	g.POST("/drag/leave", postLeave(boards))
	g.POST("/drag/drop", postDrop(boards, logger))
	g.POST("/drag/end", postDragEnd(boards))
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getColumns(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		cols, version := b.Columns()
		return c.JSON(http.StatusOK, columnsResponse{Board: b.ID(), Version: version, Columns: cols})
	}
}

func getTasks(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, tasksResponse{Tasks: b.Tasks()})
	}
}

func postCommands(boards Boards, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		boardID := c.Param("board")

		cmds := make([]domain.Command, 0, 4)
		if empty, err := decodeBody(c, &cmds); err != nil || empty {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if len(cmds) == 0 || len(cmds) > maxCommandsPerRequest {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("expected 1 to %d commands", maxCommandsPerRequest)})
		}
		b, err := boards.Get(ctx, boardID)
		if err != nil {
			return writeError(c, err)
		}

		keys := assignIdempotencyKeys(cmds)
		added := make([]bool, len(keys))
		for i := range added {
			added[i] = true
		}
		if deduper != nil {
			res, err := deduper.AddMany(ctx, boardID, keys)
			if err != nil {
				rollbackKeys(deduper, boardID, keys, res, logger)
				logger.WithError(err).WithField("board", boardID).Error("dedupe failed")
				return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to record idempotency keys"})
			}
			added = res
		}

		results := make([]commandResult, len(cmds))
		for i, cmd := range cmds {
			results[i].IdempotencyKey = keys[i]
			if !added[i] {
				results[i].Status = commandDuplicate
				continue
			}
			applied, err := b.Execute(ctx, cmd)
			if err != nil {
				results[i].Status = commandRejected
				results[i].Error = err.Error()
				if deduper != nil {
					if rerr := deduper.Remove(ctx, boardID, keys[i]); rerr != nil {
						logger.WithError(rerr).WithFields(log.Fields{"board": boardID, "key": keys[i]}).Error("dedupe rollback failed")
					}
				}
				continue
			}
			results[i].Status = commandApplied
			results[i].Command = &applied
		}
		return c.JSON(http.StatusOK, postCommandResponse{Results: results})
	}
}

// assignIdempotencyKeys fills in missing keys and copies each key into the command id.
func assignIdempotencyKeys(cmds []domain.Command) []string {
	keys := make([]string, len(cmds))
	for i := range cmds {
		if cmds[i].IdempotencyKey == "" {
			cmds[i].IdempotencyKey = uuid.NewString()
		}
		cmds[i].ID = cmds[i].IdempotencyKey
		keys[i] = cmds[i].IdempotencyKey
	}
	return keys
}

func rollbackKeys(deduper Deduper, boardID string, keys []string, added []bool, logger *log.Logger) {
	for i, ok := range added {
		if !ok || i >= len(keys) {
			continue
		}
		if err := deduper.Remove(context.Background(), boardID, keys[i]); err != nil {
			logger.WithError(err).WithFields(log.Fields{"board": boardID, "key": keys[i]}).Error("dedupe rollback failed")
		}
	}
}

func putColumnTitle(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req titleRequest
		if empty, err := decodeBody(c, &req); err != nil || empty {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		view, err := b.EditTitle(domain.Status(c.Param("status")), req.Action, req.Value)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func getDrag(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b.DragView())
	}
}

func postDragStart(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dragStartRequest
		if empty, err := decodeBody(c, &req); err != nil || empty || req.TaskID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "taskId is required"})
		}
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		if err := b.StartDrag(req.TaskID); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b.DragView())
	}
}

func postHoverColumn(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req hoverColumnRequest
		if empty, err := decodeBody(c, &req); err != nil || empty || req.Column == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "column is required"})
		}
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		view, err := b.HoverColumn(req.Column)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func postHoverTask(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req hoverTaskRequest
		if empty, err := decodeBody(c, &req); err != nil || empty || req.TargetID == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "targetId is required"})
		}
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		view, err := b.HoverTask(req.TargetID, req.PointerY, req.Bounds)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func postLeave(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req leaveRequest
		if empty, err := decodeBody(c, &req); err != nil || empty {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		switch req.Kind {
		case leaveTask:
			return c.JSON(http.StatusOK, b.LeaveTask(req.TargetID, req.Left, req.Entered))
		case leaveColumn:
			return c.JSON(http.StatusOK, b.LeaveColumn(req.Column, req.Left, req.Entered))
		default:
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "kind must be task or column"})
		}
	}
}

func postDragEnd(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := boards.Get(c.Request().Context(), c.Param("board"))
		if err != nil {
			return writeError(c, err)
		}
		b.EndDrag()
		return c.JSON(http.StatusOK, b.DragView())
	}
}

// postDrop completes a gesture. An empty body drops on whatever the server-side session
// is hovering; a body describes the drop explicitly.
func postDrop(boards Boards, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newDropMetrics(ctx, logger, c.Param("board"))
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		var req board.Drop
		empty, decodeErr := decodeBody(c, &req)
		if decodeErr != nil || (!empty && req.DraggedID == "") {
			metrics.Fail("decode", decodeErr)
			err = c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid drop"})
			return err
		}
		metrics.SetExplicit(!empty)

		b, loadErr := boards.Get(ctx, c.Param("board"))
		if loadErr != nil {
			metrics.Fail("load_board", loadErr)
			err = writeError(c, loadErr)
			return err
		}

		resolveStart := time.Now()
		var res board.DropResult
		var dropErr error
		if empty {
			res, dropErr = b.Drop(ctx)
		} else {
			res, dropErr = b.DropOn(ctx, req)
		}
		metrics.ObserveResolve(time.Since(resolveStart))
		if dropErr != nil {
			metrics.Fail("apply", dropErr)
			err = writeError(c, dropErr)
			return err
		}
		metrics.SetResult(res)
		err = c.JSON(http.StatusOK, res)
		return err
	}
}

// decodeBody decodes a JSON request body into v, rejecting unknown fields. empty reports
// a body with no content, which leaves v untouched.
func decodeBody(c echo.Context, v any) (empty bool, err error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, postBodyMaxSize+1))
	if err != nil {
		return false, err
	}
	if len(data) > postBodyMaxSize {
		return false, errors.New("request body too large")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true, nil
	}
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return false, dec.Decode(v)
}

func statusFor(err error) int {
	var invalidPos *domain.InvalidPositionError
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateTask):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownColumn),
		errors.Is(err, domain.ErrEmptyUpdate),
		errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, domain.ErrUnknownCommand),
		errors.As(err, &invalidPos),
		board.IsUnknownTitleAction(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}
