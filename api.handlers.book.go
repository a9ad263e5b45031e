package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index sends users to the catalog page.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, CatalogPath, http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := StatusResponse{
		RequestID: requestID,
		Status:    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		Message:   "Hello. Books catalog api is available. Enjoy :)",
	}
	if err := WriteJSON(r.Context(), w, http.StatusOK, resp); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// sendError logs the failure reason then answers with the error envelope.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, status int, message string, data interface{}, reason error) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	api.logger.Error(message, zap.String("request.id", requestID), zap.Int("status", status), zap.Error(reason))
	if err := WriteErrorResponse(r.Context(), w, NewAPIError(requestID, status, message, data)); err != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// sendJSON answers with v as body and logs a sending failure.
func (api *APIHandler) sendJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if err := WriteJSON(r.Context(), w, status, v); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)), zap.Error(err))
	}
}

// bookIDFromParams extracts the book id path parameter. It answers
// with 400 and returns false when the id is not valid.
func (api *APIHandler) bookIDFromParams(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (int64, bool) {
	raw := ps.ByName("id")
	id, err := ParseBookID(raw)
	if err != nil {
		api.sendError(w, r, http.StatusBadRequest, "book id provided is not valid", raw, err)
		return 0, false
	}
	return id, true
}

// storageFailure maps a storage error into its response status and message.
func storageFailure(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound, "book does not exist"
	case errors.Is(err, ErrBookVersionConflict):
		return http.StatusConflict, "book was modified by another request"
	default:
		return http.StatusInternalServerError, fallback
	}
}

// CreateBook stores a new book and answers with it. The id is server assigned.
func (api *APIHandler) CreateBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in BookInput
	if err := DecodeBookRequestBody(r, &in); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", in, err)
		return
	}

	if err := ValidateBookRequestBody(&in); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to create the book", err.Error(), err)
		return
	}

	book, err := api.bookService.Add(r.Context(), in)
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to create the book", in, err)
		return
	}
	api.logger.Info("success to create book", zap.Int64("book.id", book.ID), zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)))
	api.sendJSON(w, r, http.StatusCreated, book)
}

// GetAllBooks answers with the json array of all books ordered by id.
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := api.bookService.GetAll(r.Context())
	if err != nil {
		api.sendError(w, r, http.StatusInternalServerError, "failed to get all books", []Book{}, err)
		return
	}
	api.logger.Info("success to get all books", zap.Int("total", len(books)), zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)))
	api.sendJSON(w, r, http.StatusOK, books)
}

func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.bookIDFromParams(w, r, ps)
	if !ok {
		return
	}
	book, err := api.bookService.GetOne(r.Context(), id)
	if err != nil {
		status, message := storageFailure(err, "failed to get the book")
		api.sendError(w, r, status, message, id, err)
		return
	}
	api.sendJSON(w, r, http.StatusOK, book)
}

// DeleteOneBook removes a book and answers with the deleted record.
func (api *APIHandler) DeleteOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.bookIDFromParams(w, r, ps)
	if !ok {
		return
	}
	book, err := api.bookService.GetOne(r.Context(), id)
	if err != nil {
		status, message := storageFailure(err, "failed to check if the book exist")
		api.sendError(w, r, status, message, id, err)
		return
	}

	if err = api.bookService.Delete(r.Context(), id); err != nil {
		status, message := storageFailure(err, "failed to delete the book")
		api.sendError(w, r, status, message, id, err)
		return
	}
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	api.logger.Info("success to delete book", zap.Int64("book.id", id), zap.String("request.id", requestID))
	api.sendJSON(w, r, http.StatusOK, GenericResponse(requestID, http.StatusOK, "Book deleted successfully.", book))
}

// decodeUpdate reads and checks the body of PUT and PATCH requests.
func (api *APIHandler) decodeUpdate(w http.ResponseWriter, r *http.Request, id int64, full bool) (BookInput, bool) {
	var in BookInput
	if err := DecodeBookRequestBody(r, &in); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", in, err)
		return in, false
	}
	if in.ID != nil && *in.ID != id {
		err := fmt.Errorf("body id %d differs from path id %d", *in.ID, id)
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", err.Error(), err)
		return in, false
	}
	if !full {
		return in, true
	}
	if err := ValidateBookRequestBody(&in); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "failed to update the book", err.Error(), err)
		return in, false
	}
	return in, true
}

// UpdateBook replaces the whole book record identified by the path id.
func (api *APIHandler) UpdateBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.bookIDFromParams(w, r, ps)
	if !ok {
		return
	}
	in, ok := api.decodeUpdate(w, r, id, true)
	if !ok {
		return
	}
	book, err := api.bookService.Replace(r.Context(), id, in)
	if err != nil {
		status, message := storageFailure(err, "failed to update the book")
		api.sendError(w, r, status, message, in, err)
		return
	}
	api.logger.Info("success to update book", zap.Int64("book.id", id), zap.Int64("book.version", book.Version), zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)))
	api.sendJSON(w, r, http.StatusOK, book)
}

// PatchBook merges the non empty fields of the body into the book.
func (api *APIHandler) PatchBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := api.bookIDFromParams(w, r, ps)
	if !ok {
		return
	}
	in, ok := api.decodeUpdate(w, r, id, false)
	if !ok {
		return
	}
	book, err := api.bookService.Patch(r.Context(), id, in)
	if err != nil {
		status, message := storageFailure(err, "failed to update the book")
		api.sendError(w, r, status, message, in, err)
		return
	}
	api.logger.Info("success to patch book", zap.Int64("book.id", id), zap.Int64("book.version", book.Version), zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)))
	api.sendJSON(w, r, http.StatusOK, book)
}
