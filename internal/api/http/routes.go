package httpapi

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-history/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	app.Post("/criar_previsao/:cidade", func(c *fiber.Ctx) error {
		city, err := cityParam(c)
		if err != nil {
			return err
		}

		result, err := service.Ingest(c.UserContext(), city)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"message": result.Message,
			"status":  result.Status,
			"id":      result.Record.ID,
		})
	})

	// GET /previsao lists everything, unless a city is given in the query
	// string: ?cidade=X&data=YYYY-MM-DD (or the legacy ?cidade=X&data/YYYY-MM-DD).
	app.Get("/previsao", func(c *fiber.Ctx) error {
		city := c.Query("cidade")
		if city == "" {
			records, err := service.List(c.UserContext())
			if err != nil {
				return err
			}
			return c.JSON(records)
		}

		date, ok := dateQuery(c)
		if !ok {
			records, err := service.ByCity(c.UserContext(), city)
			if err != nil {
				return err
			}
			return c.JSON(records)
		}

		return byCityAndDate(c, service, cityDateQuery{City: city, Date: date})
	})

	app.Get("/previsao/cidade/:cidade/data/:data", func(c *fiber.Ctx) error {
		city, err := cityParam(c)
		if err != nil {
			return err
		}
		return byCityAndDate(c, service, cityDateQuery{City: city, Date: c.Params("data")})
	})

	app.Get("/previsao/cidade/:cidade", func(c *fiber.Ctx) error {
		city, err := cityParam(c)
		if err != nil {
			return err
		}

		records, err := service.ByCity(c.UserContext(), city)
		if err != nil {
			return err
		}
		return c.JSON(records)
	})

	app.Get("/previsao/:id", func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}

		record, err := service.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(record)
	})

	app.Delete("/previsao/:id", func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return err
		}

		if err := service.Delete(c.UserContext(), id); err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "Record deleted",
		})
	})
}

// cityDateQuery holds the parameters of the city+date lookup.
type cityDateQuery struct {
	City string `validate:"required"`
	Date string `validate:"required,datetime=2006-01-02"`
}

func byCityAndDate(c *fiber.Ctx, service *weather.Service, q cityDateQuery) error {
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid date format, use YYYY-MM-DD: "+err.Error())
	}

	records, err := service.ByCityAndDate(c.UserContext(), q.City, q.Date)
	if err != nil {
		return err
	}
	return c.JSON(records)
}

// dateQuery returns the requested day from either ?data=... or a bare
// "data/YYYY-MM-DD" query key.
func dateQuery(c *fiber.Ctx) (string, bool) {
	if d := c.Query("data"); d != "" {
		return d, true
	}

	var legacy string
	c.Context().QueryArgs().VisitAll(func(key, _ []byte) {
		if k := string(key); legacy == "" && strings.HasPrefix(k, "data/") {
			legacy = strings.TrimPrefix(k, "data/")
		}
	})
	return legacy, legacy != ""
}

type cityPath struct {
	City string `validate:"required"`
}

func cityParam(c *fiber.Ctx) (string, error) {
	raw, err := url.PathUnescape(c.Params("cidade"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid city: "+err.Error())
	}

	p := cityPath{City: strings.TrimSpace(raw)}
	if err := validate.Struct(p); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "city is required")
	}
	return p.City, nil
}

type idPath struct {
	ID int64 `validate:"gt=0"`
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "id must be an integer")
	}

	p := idPath{ID: id}
	if err := validate.Struct(p); err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "id must be positive")
	}
	return p.ID, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, weather.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, weather.ErrValidation), errors.Is(err, weather.ErrUpstream):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
