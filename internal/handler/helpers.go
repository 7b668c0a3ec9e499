package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vidyalay/pariksha-api/internal/service"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := c.Params(key)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}

	return uint(parsed), nil
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	actor := service.Actor{}
	if v := c.Locals("user_id"); v != nil {
		switch id := v.(type) {
		case uint:
			actor.ID = id
		case int:
			if id > 0 {
				actor.ID = uint(id)
			}
		case float64:
			if id > 0 {
				actor.ID = uint(id)
			}
		}
	}
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			actor.Role = role
		}
	}

	return actor
}
