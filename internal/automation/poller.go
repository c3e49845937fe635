package automation

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"flowAgent/internal/dom"
	"flowAgent/internal/selectors"
)

// mediaExtensions - расширения, по которым короткий абсолютный src все же
// считается готовым видео, а не заглушкой.
var mediaExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mov":  true,
	".m3u8": true,
}

// Poller наблюдает за побочными эффектами генерации: у студии нет API
// или событий завершения, только текст и атрибуты на странице.
type Poller struct {
	doc   dom.Document
	clock Clock
	tun   Tunables
	log   *zap.Logger
}

func NewPoller(doc dom.Document, clock Clock, tun Tunables, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{doc: doc, clock: clock, tun: tun.withDefaults(), log: log}
}

// WaitForImage ждет "100%" или кнопку "Add to prompt" в тексте страницы.
// Первая проверка - сразу, последняя - после истечения лимита.
func (p *Poller) WaitForImage(ctx context.Context, sel selectors.Config) bool {
	check := func() bool { return p.imageDone(sel) }
	return p.poll(ctx, "image", p.tun.ImageTimeout, p.tun.ImagePollInterval, check)
}

// WaitForVideo ждет <video> с настоящим src. Таймаут - это ("", false), не ошибка.
func (p *Poller) WaitForVideo(ctx context.Context) (string, bool) {
	var found string
	check := func() bool {
		found = p.videoSource()
		return found != ""
	}
	if p.poll(ctx, "video", p.tun.VideoTimeout, p.tun.VideoPollInterval, check) {
		return found, true
	}
	return "", false
}

func (p *Poller) poll(ctx context.Context, kind string, timeout, interval time.Duration, check func() bool) bool {
	if check() {
		return true
	}

	deadline := p.clock.Now().Add(timeout)
	attempts := 1
	for p.clock.Now().Before(deadline) {
		wait := interval
		if left := deadline.Sub(p.clock.Now()); left < wait {
			wait = left
		}
		if err := p.clock.Sleep(ctx, wait); err != nil {
			p.log.Debug("Ожидание прервано", zap.String("kind", kind), zap.Error(err))
			break
		}
		attempts++
		if check() {
			p.log.Info("Генерация завершена", zap.String("kind", kind), zap.Int("attempts", attempts))
			return true
		}
	}

	if check() {
		return true
	}
	p.log.Warn("Превышено время ожидания генерации", zap.String("kind", kind), zap.Duration("timeout", timeout))
	return false
}

func (p *Poller) imageDone(sel selectors.Config) bool {
	text, err := p.doc.BodyText()
	if err != nil {
		p.log.Debug("Не удалось прочитать текст страницы", zap.Error(err))
		return false
	}
	if strings.Contains(text, ProgressCompleteMarker) {
		return true
	}
	return containsAny(text, sel.Generation.AddToPromptTriggers)
}

func (p *Poller) videoSource() string {
	described := dom.Snapshot(p.doc, p.log)
	for _, d := range dom.ByTag(described, "video") {
		src, err := d.Element.Attribute("src")
		if err != nil {
			continue
		}
		if IsVideoSource(src) {
			return src
		}
	}
	return ""
}

// IsVideoSource - src длиннее VideoSrcMinLength или абсолютный URL видеофайла.
func IsVideoSource(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}
	if len(src) > VideoSrcMinLength {
		return true
	}
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return mediaExtensions[strings.ToLower(path.Ext(u.Path))]
}
