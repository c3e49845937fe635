package automation

import "time"

// Эвристики подобраны под текущую верстку студии. Все магические числа
// живут здесь, чтобы после редизайна страницы менять их без правки логики.
const (
	// ExactMatchScore - текст или aria-label совпадает с фразой целиком.
	ExactMatchScore = 100
	// SubstringMatchScore - фраза входит в текст или aria-label.
	SubstringMatchScore = 50
	// Бонус за специфичность: max(0, SpecificityBonus - area/SpecificityAreaDivisor).
	// Маленькая кнопка выигрывает у большого контейнера с тем же текстом.
	SpecificityBonus       = 100
	SpecificityAreaDivisor = 1000

	// TopCandidates - сколько лучших кандидатов кликать.
	TopCandidates = 3
	// MaxAncestorClicks - сколько предков с ненулевой площадью кликать у кандидата.
	MaxAncestorClicks = 5

	// Минимальный кликабельный размер карточки "+ New project".
	MinCardWidth  = 40
	MinCardHeight = 24

	// IconButtonMaxWidth - кнопка отправки промпта без текста уже этого значения.
	IconButtonMaxWidth = 80
	// ResultImageMinSize - превью результата больше миниатюр и иконок по обеим сторонам.
	ResultImageMinSize = 200
	// VideoSrcMinLength отсекает пустые и заглушечные src у <video>.
	VideoSrcMinLength = 50
	// ProgressCompleteMarker появляется в тексте страницы, когда генерация дошла до конца.
	ProgressCompleteMarker = "100%"

	// CropAttempts и CropInterval - ожидание диалога кадрирования после загрузки.
	CropAttempts = 5
	CropInterval = 500 * time.Millisecond
	// PromptSettleDelay - пауза между вводом промпта и поиском кнопки отправки.
	PromptSettleDelay = 500 * time.Millisecond
)

// FallbackPoint - доля ширины и высоты viewport.
type FallbackPoint struct {
	X float64
	Y float64
}

// FallbackPoints - куда кликать в последнюю очередь, если карточку нового проекта
// не нашли ни по тексту, ни по разметке.
var FallbackPoints = []FallbackPoint{
	{X: 0.25, Y: 0.60},
	{X: 0.50, Y: 0.60},
	{X: 0.25, Y: 0.75},
	{X: 0.50, Y: 0.75},
}

// PlusMarkers - признаки кнопки "+" (символ или имя material-иконки).
var PlusMarkers = []string{"+", "➕", "add_2", "add_circle"}

// NewProjectKeywords дополняют фразы из таблицы селекторов.
var NewProjectKeywords = []string{"new", "create", "ใหม่", "สร้าง"}

// SkippedTags никогда не бывают целью клика.
var SkippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
}

// Tunables - настраиваемые тайминги одного запуска.
type Tunables struct {
	ImageTimeout      time.Duration
	VideoTimeout      time.Duration
	ImagePollInterval time.Duration
	VideoPollInterval time.Duration
	// StepDelay - пауза между шагами, пока страница перерисовывается.
	StepDelay time.Duration
	// RevealDelay - ожидание появления input[type=file] после клика по "Upload".
	RevealDelay time.Duration
	// VerifyFallbackClick включает проверку, что клик по координатам действительно
	// открыл рабочую область, прежде чем считать стратегию успешной.
	VerifyFallbackClick bool
}

func DefaultTunables() Tunables {
	return Tunables{
		ImageTimeout:      180 * time.Second,
		VideoTimeout:      300 * time.Second,
		ImagePollInterval: 3 * time.Second,
		VideoPollInterval: 5 * time.Second,
		StepDelay:         2 * time.Second,
		RevealDelay:       time.Second,
	}
}

func (t Tunables) withDefaults() Tunables {
	d := DefaultTunables()
	if t.ImageTimeout <= 0 {
		t.ImageTimeout = d.ImageTimeout
	}
	if t.VideoTimeout <= 0 {
		t.VideoTimeout = d.VideoTimeout
	}
	if t.ImagePollInterval <= 0 {
		t.ImagePollInterval = d.ImagePollInterval
	}
	if t.VideoPollInterval <= 0 {
		t.VideoPollInterval = d.VideoPollInterval
	}
	if t.StepDelay < 0 {
		t.StepDelay = 0
	}
	if t.RevealDelay <= 0 {
		t.RevealDelay = d.RevealDelay
	}
	return t
}
