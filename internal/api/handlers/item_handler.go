package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/inventory-tracker/internal/auth"
	"github.com/isdelr/inventory-tracker/internal/images"
	"github.com/isdelr/inventory-tracker/internal/models"
	"github.com/isdelr/inventory-tracker/internal/services"
	"github.com/isdelr/inventory-tracker/internal/views"
	"github.com/rs/zerolog/log"
)

const (
	msgItemNotFound       = "Item not found!"
	msgInvalidImageAdd    = "Invalid image format. Allowed: PNG, JPG, JPEG, GIF, WEBP"
	msgInvalidImageEdit   = "Invalid image format."
	msgUploadTooLarge     = "Image exceeds the 5 MB upload limit."
	msgItemSaveFailed     = "Could not save the item. Please try again."
	multipartMemoryBuffer = 1 << 20
)

// ImageStore is the subset of images.Store the handlers use.
type ImageStore interface {
	Save(filename string, src io.Reader) (string, error)
	Delete(name string) (images.DeleteResult, error)
	Path(name string) (string, error)
}

// ItemHandler handles HTTP requests for inventory items. Every operation is
// scoped to the signed-in user.
type ItemHandler struct {
	items  services.ItemServiceProvider
	images ImageStore
	views  *views.Renderer
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(items services.ItemServiceProvider, store ImageStore, v *views.Renderer) *ItemHandler {
	return &ItemHandler{items: items, images: store, views: v}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

// itemID parses the {id} route parameter. Ids that do not fit are treated
// like unknown items.
func itemID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// loadItem fetches the owned item named in the URL, or redirects home with
// a not-found message. Foreign and missing items look the same.
func (h *ItemHandler) loadItem(w http.ResponseWriter, r *http.Request) (models.Item, bool) {
	id, ok := itemID(r)
	if !ok {
		redirectWithFlash(w, r, "/", flashError(msgItemNotFound))
		return models.Item{}, false
	}
	item, err := h.items.GetItem(r.Context(), id, principal(r).ID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			log.Error().Err(err).Int64("item_id", id).Msg("Failed to load item")
			renderError(h.views, w, r, http.StatusInternalServerError, "Could not load the item.")
			return models.Item{}, false
		}
		redirectWithFlash(w, r, "/", flashError(msgItemNotFound))
		return models.Item{}, false
	}
	return item, true
}

// deleteImage removes a stored file. Failures are logged and never fail the
// request.
func (h *ItemHandler) deleteImage(name string, itemID int64) {
	res, err := h.images.Delete(name)
	if err != nil {
		log.Warn().Err(err).Str("image", name).Int64("item_id", itemID).Msg("Failed to delete image file")
		return
	}
	if res == images.Missing {
		log.Debug().Str("image", name).Int64("item_id", itemID).Msg("Image file already gone")
	}
}

var errUploadTooLarge = errors.New("upload too large")

// parseItemRequest reads the (possibly multipart) form and returns the
// uploaded image part, if one was chosen.
func parseItemRequest(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, images.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemoryBuffer); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
			return nil, nil, errUploadTooLarge
		case errors.Is(err, http.ErrNotMultipart):
			// plain urlencoded form, already parsed
		default:
			return nil, nil, err
		}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if header.Filename == "" {
		file.Close()
		return nil, nil, nil
	}
	return file, header, nil
}

func itemFormFrom(r *http.Request) services.ItemForm {
	return services.ItemForm{
		Name:     r.PostFormValue("name"),
		Quantity: r.PostFormValue("quantity"),
		Price:    r.PostFormValue("price"),
		Category: r.PostFormValue("category"),
	}
}

func validationFlash(err error) views.Flash {
	var verr *services.ValidationError
	if errors.As(err, &verr) && len(verr.Messages) > 0 {
		return flashError(verr.Messages[0])
	}
	return flashError(services.MsgFieldsRequired)
}

// saveUpload stores the uploaded file. Any failure, including I/O errors,
// is reported to the user as an invalid image.
func (h *ItemHandler) saveUpload(file multipart.File, header *multipart.FileHeader) (string, bool) {
	defer file.Close()
	name, err := h.images.Save(header.Filename, file)
	if err != nil {
		if !errors.Is(err, images.ErrInvalidImage) {
			log.Error().Err(err).Str("filename", header.Filename).Msg("Failed to store uploaded image")
		}
		return "", false
	}
	return name, true
}

// List renders the signed-in user's inventory with summary totals.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.items.ListItems(r.Context(), principal(r).ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", principal(r).ID).Msg("Failed to list items")
		renderError(h.views, w, r, http.StatusInternalServerError, "Could not load your inventory.")
		return
	}
	data := views.ListData{Items: items, Summary: services.Summarize(items)}
	h.views.Render(w, http.StatusOK, "index.html", newPage(w, r, "My inventory", data))
}

// AddForm renders the empty item form.
func (h *ItemHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, http.StatusOK, "add.html", newPage(w, r, "Add item", services.ItemForm{}))
}

// Add creates an item, optionally with an image.
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	file, header, err := parseItemRequest(w, r)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			redirectWithFlash(w, r, "/add", flashError(msgUploadTooLarge))
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	fields, err := itemFormFrom(r).Parse()
	if err != nil {
		if file != nil {
			file.Close()
		}
		redirectWithFlash(w, r, "/add", validationFlash(err))
		return
	}

	if file != nil {
		name, ok := h.saveUpload(file, header)
		if !ok {
			redirectWithFlash(w, r, "/add", flashError(msgInvalidImageAdd))
			return
		}
		fields.ImageFilename = &name
	}

	owner := principal(r).ID
	item, err := h.items.CreateItem(r.Context(), owner, fields)
	if err != nil {
		log.Error().Err(err).Int64("user_id", owner).Msg("Failed to create item")
		if fields.ImageFilename != nil {
			h.deleteImage(*fields.ImageFilename, 0)
		}
		redirectWithFlash(w, r, "/add", flashError(msgItemSaveFailed))
		return
	}

	log.Info().Int64("item_id", item.ID).Int64("user_id", owner).Msg("Item created")
	redirectWithFlash(w, r, "/", flashSuccess(fmt.Sprintf("Item \"%s\" added successfully!", flashName(item.Name))))
}

// EditForm renders the form for an owned item.
func (h *ItemHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	h.views.Render(w, http.StatusOK, "edit.html", newPage(w, r, "Edit "+item.Name, views.ItemData{Item: item}))
}

// Edit replaces an item's fields and optionally its image. A new image is
// stored before the row changes; old files are removed only after the row
// no longer references them.
func (h *ItemHandler) Edit(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	back := fmt.Sprintf("/edit/%d", item.ID)

	file, header, err := parseItemRequest(w, r)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			redirectWithFlash(w, r, back, flashError(msgUploadTooLarge))
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	fields, err := itemFormFrom(r).Parse()
	if err != nil {
		if file != nil {
			file.Close()
		}
		redirectWithFlash(w, r, back, validationFlash(err))
		return
	}

	current := item.Image()
	keep := current
	if r.PostFormValue("remove_image") != "" {
		keep = ""
	}

	var uploaded string
	if file != nil {
		name, ok := h.saveUpload(file, header)
		if !ok {
			redirectWithFlash(w, r, back, flashError(msgInvalidImageEdit))
			return
		}
		uploaded = name
		keep = name
	}
	if keep != "" {
		fields.ImageFilename = &keep
	}

	owner := principal(r).ID
	updated, err := h.items.UpdateItem(r.Context(), item.ID, owner, fields)
	if err != nil {
		if uploaded != "" {
			h.deleteImage(uploaded, item.ID)
		}
		if errors.Is(err, services.ErrNotFound) {
			redirectWithFlash(w, r, "/", flashError(msgItemNotFound))
			return
		}
		log.Error().Err(err).Int64("item_id", item.ID).Msg("Failed to update item")
		redirectWithFlash(w, r, back, flashError(msgItemSaveFailed))
		return
	}

	if current != "" && current != keep {
		h.deleteImage(current, item.ID)
	}

	log.Info().Int64("item_id", item.ID).Int64("user_id", owner).Msg("Item updated")
	redirectWithFlash(w, r, "/", flashSuccess(fmt.Sprintf("Item \"%s\" updated successfully!", flashName(updated.Name))))
}

// Delete removes an owned item and its image file.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	owner := principal(r).ID
	if err := h.items.DeleteItem(r.Context(), item.ID, owner); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			redirectWithFlash(w, r, "/", flashError(msgItemNotFound))
			return
		}
		log.Error().Err(err).Int64("item_id", item.ID).Msg("Failed to delete item")
		renderError(h.views, w, r, http.StatusInternalServerError, "Could not delete the item.")
		return
	}
	if item.HasImage() {
		h.deleteImage(item.Image(), item.ID)
	}

	log.Info().Int64("item_id", item.ID).Int64("user_id", owner).Msg("Item deleted")
	redirectWithFlash(w, r, "/", flashSuccess(fmt.Sprintf("Item \"%s\" deleted successfully!", flashName(item.Name))))
}

// View renders a single owned item.
func (h *ItemHandler) View(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	h.views.Render(w, http.StatusOK, "view.html", newPage(w, r, item.Name, views.ItemData{Item: item}))
}

// Search lists owned items whose name or category contains q.
func (h *ItemHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	items, err := h.items.SearchItems(r.Context(), principal(r).ID, q)
	if err != nil {
		log.Error().Err(err).Str("query", q).Msg("Failed to search items")
		renderError(h.views, w, r, http.StatusInternalServerError, "Search failed.")
		return
	}
	h.views.Render(w, http.StatusOK, "search.html", newPage(w, r, "Search", views.SearchData{Query: q, Items: items}))
}

// ServeImage streams a stored image file referenced by one of the
// signed-in user's items. Anything else is a 404.
func (h *ItemHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	path, err := h.images.Path(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	owned, err := h.items.OwnsImage(r.Context(), principal(r).ID, name)
	if err != nil {
		log.Error().Err(err).Str("image", name).Msg("Failed to check image owner")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if !owned {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, path)
}
