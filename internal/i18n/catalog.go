// Package i18n holds the UI copy for the gateway pages in English and
// Indonesian.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	AppName         = "app.name"
	NavHome         = "nav.home"
	NavGenerate     = "nav.generate"
	NavRemove       = "nav.remove"
	NavHistory      = "nav.history"
	HomeIntro       = "home.intro"
	GenerateTitle   = "generate.title"
	GenerateLabel   = "generate.label"
	GenerateHint    = "generate.hint"
	GenerateSubmit  = "generate.submit"
	GenerateResult  = "generate.result"
	RemoveTitle     = "remove.title"
	RemoveLabel     = "remove.label"
	RemoveHint      = "remove.hint"
	RemoveSubmit    = "remove.submit"
	RemoveResult    = "remove.result"
	Download        = "result.download"
	TryAgain        = "result.again"
	ErrorTitle      = "error.title"
	NotFoundTitle   = "error.not_found"
	HistoryTitle    = "history.title"
	HistoryEmpty    = "history.empty"
	HistoryWhen     = "history.when"
	HistoryKind     = "history.kind"
	HistoryProvider = "history.provider"
	HistoryStatus   = "history.status"
	HistoryDuration = "history.duration"
)

var entries = map[string][2]string{
	AppName:         {"Image Gateway", "Gerbang Gambar"},
	NavHome:         {"Home", "Beranda"},
	NavGenerate:     {"Generate image", "Buat gambar"},
	NavRemove:       {"Remove background", "Hapus latar"},
	NavHistory:      {"History", "Riwayat"},
	HomeIntro:       {"Create an image from a text prompt or remove the background from a photo.", "Buat gambar dari deskripsi teks atau hapus latar belakang dari foto."},
	GenerateTitle:   {"Generate an image", "Buat gambar"},
	GenerateLabel:   {"Describe the image", "Deskripsikan gambar"},
	GenerateHint:    {"Up to %d characters.", "Maksimal %d karakter."},
	GenerateSubmit:  {"Generate", "Buat"},
	GenerateResult:  {"Generated image", "Gambar yang dihasilkan"},
	RemoveTitle:     {"Remove a background", "Hapus latar belakang"},
	RemoveLabel:     {"Choose an image", "Pilih gambar"},
	RemoveHint:      {"Images up to %s.", "Gambar maksimal %s."},
	RemoveSubmit:    {"Remove background", "Hapus latar"},
	RemoveResult:    {"Background removed", "Latar berhasil dihapus"},
	Download:        {"Download", "Unduh"},
	TryAgain:        {"Try another", "Coba lagi"},
	ErrorTitle:      {"Something went wrong", "Terjadi kesalahan"},
	NotFoundTitle:   {"Page not found", "Halaman tidak ditemukan"},
	HistoryTitle:    {"Recent requests", "Permintaan terbaru"},
	HistoryEmpty:    {"No requests yet.", "Belum ada permintaan."},
	HistoryWhen:     {"When", "Waktu"},
	HistoryKind:     {"Kind", "Jenis"},
	HistoryProvider: {"Provider", "Penyedia"},
	HistoryStatus:   {"Status", "Status"},
	HistoryDuration: {"Duration", "Durasi"},
}

var messages = newCatalog()

func newCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, pair := range entries {
		_ = b.SetString(language.English, key, pair[0])
		_ = b.SetString(language.Indonesian, key, pair[1])
	}
	return b
}

// Printer returns a printer for the given locale. Unknown locales fall back
// to English.
func Printer(locale string) *message.Printer {
	tag := language.English
	if locale == "id" {
		tag = language.Indonesian
	}
	return message.NewPrinter(tag, message.Catalog(messages))
}

// T renders key for locale.
func T(locale, key string, args ...any) string {
	return Printer(locale).Sprintf(key, args...)
}
