package ratatouille

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/ratatouille/cookbook"
	"github.com/eringen/ratatouille/recipe"
	"github.com/eringen/ratatouille/search"
	"github.com/eringen/ratatouille/views"
)

// page builds the data every full page needs and drains the visitor's
// pending notices into it.
func (a *App) page(c echo.Context, v *search.Visitor) views.Page {
	p := views.Page{
		Site:     a.Config.site(),
		Meta:     views.PageMeta{URL: strings.TrimRight(a.Config.URL, "/") + c.Request().URL.Path},
		CSRF:     CsrfToken(c),
		ImageURL: a.imageURL,
	}
	if v != nil {
		p.Notices = v.Notices.Drain()
	}
	return p
}

func (a *App) handleHome(c echo.Context) error {
	v := a.visitor(c)
	return Render(c, views.SearchPage(a.page(c, v), v.Session.Snapshot()))
}

func (a *App) handleSearch(c echo.Context) error {
	if !a.searchLimiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many searches, please wait a minute.")
	}
	v := a.visitor(c)
	query := strings.TrimSpace(c.FormValue("q"))
	return a.afterFetch(c, v.Session.SubmitSearch(c.Request().Context(), query))
}

func (a *App) handlePage(c echo.Context) error {
	v := a.visitor(c)
	ctx := c.Request().Context()
	if raw := c.FormValue("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
		}
		return a.afterFetch(c, v.Session.GoToPage(ctx, n))
	}
	switch c.FormValue("dir") {
	case "next":
		return a.afterFetch(c, v.Session.NextPage(ctx))
	case "prev":
		return a.afterFetch(c, v.Session.PreviousPage(ctx))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid page")
	}
}

// afterFetch sends the visitor back to the search page. Remote failures are
// already recorded in the session and shown there.
func (a *App) afterFetch(c echo.Context, err error) error {
	if errors.Is(err, search.ErrPageOutOfRange) {
		return echo.NewHTTPError(http.StatusBadRequest, "page out of range")
	}
	if err != nil && !errors.Is(err, search.ErrSuperseded) && !errors.Is(err, context.Canceled) {
		c.Logger().Debugf("search failed: %v", err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleSaveFavourite(c echo.Context) error {
	v := a.visitor(c)
	id, err := strconv.Atoi(c.FormValue("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid recipe id")
	}
	r, ok := v.Session.Result(id)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "recipe is not in the current results")
	}
	if err := v.Session.SaveFavourite(c.Request().Context(), r); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) handleAddRecipeForm(c echo.Context) error {
	v := a.visitor(c)
	form := views.AddRecipeForm{Return: returnPath(c.Request().Referer(), c.Request().Host)}
	return Render(c, views.AddRecipePage(a.page(c, v), form))
}

func (a *App) handleAddRecipe(c echo.Context) error {
	v := a.visitor(c)
	form := views.AddRecipeForm{
		Title:        c.FormValue("title"),
		Ingredients:  c.FormValue("ingredients"),
		Instructions: c.FormValue("instructions"),
		Return:       returnPath(c.FormValue("return"), c.Request().Host),
	}
	book := cookbook.New(v.Store, v.Notices, c.Logger())
	if _, err := book.AddRecipe(c.Request().Context(), form.Title, form.Ingredients, form.Instructions); err != nil {
		var verr *recipe.ValidationError
		if errors.As(err, &verr) {
			v.Notices.Notify(verr.Message)
			return RenderStatus(c, http.StatusUnprocessableEntity, views.AddRecipePage(a.page(c, v), form))
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, form.Return)
}

func (a *App) handleSaved(c echo.Context) error {
	v := a.visitor(c)
	book := cookbook.New(v.Store, v.Notices, c.Logger())
	ctx := c.Request().Context()
	favourites, err := book.Favourites(ctx)
	if err != nil {
		return err
	}
	custom, err := book.CustomRecipes(ctx)
	if err != nil {
		return err
	}
	return Render(c, views.SavedPage(a.page(c, v), favourites, custom))
}

func (a *App) handleHealth(c echo.Context) error {
	if err := a.Store.Ping(c.Request().Context()); err != nil {
		c.Logger().Errorf("health: %v", err)
		return c.String(http.StatusServiceUnavailable, "unavailable")
	}
	return c.String(http.StatusOK, "ok")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.page(c, nil)))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, views.ServerError(a.page(c, nil)))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
