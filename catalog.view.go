package main

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// CatalogPath is the root path of the catalog pages.
const CatalogPath = "/catalog"

// Notification levels.
const (
	NoticeInfo    = "info"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Notice is the non blocking message shown on top of a page.
type Notice struct {
	Level   string
	Message string
}

// BookForm holds the values of the create and edit forms.
type BookForm struct {
	ID          int64
	Title       string
	Author      string
	Description string
	Version     int64
}

// BookRow is one line of the catalog table.
type BookRow struct {
	ID          int64
	Title       string
	Author      string
	Description string
}

type listPage struct {
	Notice     *Notice
	Books      []BookRow
	LoadFailed bool
	Form       BookForm
}

type editPage struct {
	Notice *Notice
	Form   BookForm
}

type deletePage struct {
	Notice *Notice
	Book   BookRow
}

// CatalogView serves the html pages which list and modify the books
// through the remote catalog.
type CatalogView struct {
	logger    *zap.Logger
	catalog   BookCatalog
	templates *template.Template
}

// NewCatalogView parses the embedded templates and provides the view.
func NewCatalogView(logger *zap.Logger, catalog BookCatalog) (*CatalogView, error) {
	tmpl, err := template.New("catalog").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog templates: %w", err)
	}
	return &CatalogView{logger: logger, catalog: catalog, templates: tmpl}, nil
}

// BookRows maps the collection into table rows in the same order.
func BookRows(books []Book) []BookRow {
	rows := make([]BookRow, 0, len(books))
	for _, b := range books {
		rows = append(rows, BookRow{
			ID:          b.ID,
			Title:       b.Title,
			Author:      b.Author,
			Description: b.DescriptionOrEmpty(),
		})
	}
	return rows
}

// RenderList renders the list page of the given collection. The same
// inputs always produce the same bytes.
func (v *CatalogView) RenderList(books []Book, notice *Notice, form BookForm) ([]byte, error) {
	return v.render("list.html", listPage{Notice: notice, Books: BookRows(books), Form: form})
}

func (v *CatalogView) render(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// write sends a fully rendered page. Nothing is sent when rendering fails.
func (v *CatalogView) write(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	page, err := v.render(name, data)
	if err != nil {
		v.logger.Error("catalog: failed to render page", zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)), zap.Error(err))
		http.Error(w, "failed to render the page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(page); err != nil {
		v.logger.Error("catalog: failed to send page", zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)), zap.Error(err))
	}
}

// redirect goes back to the list page which shows the given notice.
func (v *CatalogView) redirect(w http.ResponseWriter, r *http.Request, level, message string) {
	target := CatalogPath
	if message != "" {
		q := url.Values{}
		q.Set("notice", message)
		q.Set("level", level)
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// noticeFromQuery returns the notice carried by a redirection.
func noticeFromQuery(q url.Values) *Notice {
	message := strings.TrimSpace(q.Get("notice"))
	if message == "" {
		return nil
	}
	level := q.Get("level")
	switch level {
	case NoticeInfo, NoticeWarning, NoticeError:
	default:
		level = NoticeInfo
	}
	return &Notice{Level: level, Message: message}
}

// describeError builds the notice shown for a failed catalog operation.
func describeError(action string, err error) *Notice {
	var (
		netErr   *NetworkError
		srvErr   *ServerError
		parseErr *ParseError
	)
	switch {
	case errors.Is(err, ErrCatalogBookNotFound):
		return &Notice{Level: NoticeWarning, Message: fmt.Sprintf("Failed to %s: the book does not exist.", action)}
	case errors.Is(err, ErrCatalogVersionConflict):
		return &Notice{Level: NoticeWarning, Message: fmt.Sprintf("Failed to %s: the book was modified meanwhile. Reload and retry.", action)}
	case errors.As(err, &netErr):
		return &Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s: the books service is unreachable.", action)}
	case errors.As(err, &srvErr):
		if srvErr.Message != "" {
			return &Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s: %s (status %d).", action, srvErr.Message, srvErr.Status)}
		}
		return &Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s: status %d.", action, srvErr.Status)}
	case errors.As(err, &parseErr):
		return &Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s: unexpected response from the books service.", action)}
	default:
		return &Notice{Level: NoticeError, Message: fmt.Sprintf("Failed to %s.", action)}
	}
}

// failureStatus is the status code of a page re-rendered after a failure.
func failureStatus(err error) int {
	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Status >= 400 && srvErr.Status < 500 {
		return srvErr.Status
	}
	return http.StatusBadGateway
}

func (v *CatalogView) logFailure(ctx context.Context, msg string, id int64, err error) {
	v.logger.Error(msg, zap.String("request.id", GetValueFromContext(ctx, RequestIDContextKey)), zap.Int64("book.id", id), zap.Error(err))
}

// listPageData fetches the collection. A failed fetch gives an empty
// state with an error notice instead of the table.
func (v *CatalogView) listPageData(ctx context.Context, notice *Notice, form BookForm) listPage {
	page := listPage{Notice: notice, Form: form}
	books, err := v.catalog.ListBooks(ctx)
	if err != nil {
		v.logFailure(ctx, "catalog: failed to list books", 0, err)
		page.LoadFailed = true
		if notice == nil || notice.Level != NoticeError {
			page.Notice = describeError("load the books", err)
		}
		return page
	}
	page.Books = BookRows(books)
	return page
}

// ListBooks renders the table of the whole collection fetched fresh.
func (v *CatalogView) ListBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page := v.listPageData(r.Context(), noticeFromQuery(r.URL.Query()), BookForm{})
	v.write(w, r, http.StatusOK, "list.html", page)
}

func readBookForm(r *http.Request) (BookForm, error) {
	if err := r.ParseForm(); err != nil {
		return BookForm{}, err
	}
	form := BookForm{
		Title:       r.PostForm.Get("title"),
		Author:      r.PostForm.Get("author"),
		Description: r.PostForm.Get("description"),
	}
	if raw := r.PostForm.Get("version"); raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return form, fmt.Errorf("invalid version %q: %w", raw, err)
		}
		form.Version = version
	}
	return form, nil
}

func (f BookForm) input() BookInput {
	return BookInput{
		Title:       f.Title,
		Author:      f.Author,
		Description: NormalizeDescription(StringPtr(f.Description)),
		Version:     f.Version,
	}
}

// CreateBook submits the create form then goes back to a fresh list
// with an empty form. On failure the list is shown with the input kept.
func (v *CatalogView) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	form, err := readBookForm(r)
	if err != nil {
		v.write(w, r, http.StatusBadRequest, "list.html", v.listPageData(r.Context(), &Notice{Level: NoticeError, Message: "Invalid form submitted."}, form))
		return
	}

	book, err := v.catalog.CreateBook(r.Context(), form.input())
	if err != nil {
		v.logFailure(r.Context(), "catalog: failed to create book", 0, err)
		v.write(w, r, failureStatus(err), "list.html", v.listPageData(r.Context(), describeError("create the book", err), form))
		return
	}
	v.redirect(w, r, NoticeInfo, fmt.Sprintf("Book %q created.", book.Title))
}

func (v *CatalogView) bookID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int64, bool) {
	id, err := ParseBookID(ps.ByName("id"))
	if err != nil {
		v.redirect(w, r, NoticeWarning, "Invalid book id.")
		return 0, false
	}
	return id, true
}

// ConfirmDeleteBook asks the user to confirm the deletion.
func (v *CatalogView) ConfirmDeleteBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := v.bookID(w, r, ps)
	if !ok {
		return
	}
	book, err := v.catalog.GetBook(r.Context(), id)
	if err != nil {
		v.logFailure(r.Context(), "catalog: failed to get book", id, err)
		n := describeError("delete the book", err)
		v.redirect(w, r, n.Level, n.Message)
		return
	}
	v.write(w, r, http.StatusOK, "delete.html", deletePage{Book: BookRows([]Book{book})[0]})
}

// DeleteBook deletes the book only when the user confirmed it.
func (v *CatalogView) DeleteBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := v.bookID(w, r, ps)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("confirm") != "yes" {
		v.redirect(w, r, NoticeInfo, "Deletion cancelled.")
		return
	}
	if err := v.catalog.DeleteBook(r.Context(), id); err != nil {
		v.logFailure(r.Context(), "catalog: failed to delete book", id, err)
		n := describeError("delete the book", err)
		v.redirect(w, r, n.Level, n.Message)
		return
	}
	v.redirect(w, r, NoticeInfo, fmt.Sprintf("Book %d deleted.", id))
}

// EditBookForm shows the edit form filled with the current values.
func (v *CatalogView) EditBookForm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := v.bookID(w, r, ps)
	if !ok {
		return
	}
	book, err := v.catalog.GetBook(r.Context(), id)
	if err != nil {
		v.logFailure(r.Context(), "catalog: failed to get book", id, err)
		n := describeError("edit the book", err)
		v.redirect(w, r, n.Level, n.Message)
		return
	}
	v.write(w, r, http.StatusOK, "edit.html", editPage{Form: BookForm{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.DescriptionOrEmpty(),
		Version:     book.Version,
	}})
}

// UpdateBook replaces the book with the submitted form. Missing and
// concurrently modified books go back to the list with a warning while
// other failures show the form again with the input kept.
func (v *CatalogView) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := v.bookID(w, r, ps)
	if !ok {
		return
	}
	form, err := readBookForm(r)
	form.ID = id
	if err != nil {
		v.write(w, r, http.StatusBadRequest, "edit.html", editPage{Notice: &Notice{Level: NoticeError, Message: "Invalid form submitted."}, Form: form})
		return
	}

	if _, err = v.catalog.ReplaceBook(r.Context(), id, form.input()); err != nil {
		v.logFailure(r.Context(), "catalog: failed to update book", id, err)
		n := describeError("update the book", err)
		if errors.Is(err, ErrCatalogBookNotFound) || errors.Is(err, ErrCatalogVersionConflict) {
			v.redirect(w, r, n.Level, n.Message)
			return
		}
		v.write(w, r, failureStatus(err), "edit.html", editPage{Notice: n, Form: form})
		return
	}
	v.redirect(w, r, NoticeInfo, fmt.Sprintf("Book %d updated.", id))
}
