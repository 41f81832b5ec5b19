package httputil

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

type createThing struct {
	Name  string `json:"name" validate:"required,max=10"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestBind(t *testing.T) {
	cases := []struct {
		body   string
		status int
		fields []string
	}{
		{`{"name":"mixer","count":2}`, 200, nil},
		{`{"count":2}`, 400, []string{"Name"}},
		{`{"name":"a very long name","count":-1}`, 400, []string{"Name", "Count"}},
		{`not json`, 400, nil},
	}

	for _, tc := range cases {
		var bindErr error
		app := fiber.New()
		app.Post("/", func(c *fiber.Ctx) error {
			var body createThing
			bindErr = Bind(c, &body)
			if bindErr != nil {
				return c.SendStatus(400)
			}
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: status %d, want %d", tc.body, resp.StatusCode, tc.status)
		}

		var verr *ValidationError
		if len(tc.fields) == 0 {
			if errors.As(bindErr, &verr) {
				t.Fatalf("%s: unexpected validation error %v", tc.body, verr)
			}
			continue
		}
		if !errors.As(bindErr, &verr) {
			t.Fatalf("%s: err = %v, want ValidationError", tc.body, bindErr)
		}
		for _, f := range tc.fields {
			if _, ok := verr.Fields[f]; !ok {
				t.Fatalf("%s: missing field %s in %v", tc.body, f, verr.Fields)
			}
		}
	}
}

func TestParamID(t *testing.T) {
	app := fiber.New()
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := ParamID(c, "id")
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for path, want := range map[string]int{"/items/7": 200, "/items/0": 400, "/items/abc": 400} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != want {
			t.Errorf("%s: status %d, want %d", path, resp.StatusCode, want)
		}
	}
}
