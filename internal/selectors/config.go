// Package selectors хранит таблицу фраз-триггеров, по которым движок ищет
// элементы студии. Копирайт студии меняется без релизов расширения, поэтому
// таблицу можно переопределить удаленным JSON или локальным YAML-файлом.
package selectors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Config struct {
	Dashboard  Dashboard  `json:"dashboard" yaml:"dashboard"`
	Workspace  Workspace  `json:"workspace" yaml:"workspace"`
	Upload     Upload     `json:"upload" yaml:"upload"`
	Generation Generation `json:"generation" yaml:"generation"`
}

type Dashboard struct {
	NewProjectTriggers  []string `json:"newProjectTriggers" yaml:"newProjectTriggers"`
	WorkspaceIndicators []string `json:"workspaceIndicators" yaml:"workspaceIndicators"`
}

type Workspace struct {
	ImageTabTriggers []string `json:"imageTabTriggers" yaml:"imageTabTriggers"`
}

type Upload struct {
	UploadButtonTriggers []string `json:"uploadButtonTriggers" yaml:"uploadButtonTriggers"`
	CropSaveTriggers     []string `json:"cropSaveTriggers" yaml:"cropSaveTriggers"`
}

type Generation struct {
	AddToPromptTriggers []string `json:"addToPromptTriggers" yaml:"addToPromptTriggers"`
	VideoTabTriggers    []string `json:"videoTabTriggers" yaml:"videoTabTriggers"`
}

// Default - встроенная таблица (английский и тайский интерфейс студии).
func Default() Config {
	return Config{
		Dashboard: Dashboard{
			NewProjectTriggers: []string{
				"New project",
				"Create project",
				"Start new project",
				"โปรเจ็กต์ใหม่",
				"โปรเจกต์ใหม่",
				"สร้างโปรเจ็กต์",
			},
			WorkspaceIndicators: []string{
				"Scenebuilder",
				"Untitled project",
				"Ingredients to Video",
				"โปรเจ็กต์ที่ไม่มีชื่อ",
			},
		},
		Workspace: Workspace{
			ImageTabTriggers: []string{"Images", "Image", "รูปภาพ", "ภาพ"},
		},
		Upload: Upload{
			UploadButtonTriggers: []string{"Upload", "Upload image", "อัปโหลด", "อัปโหลดรูปภาพ"},
			CropSaveTriggers:     []string{"Crop and save", "Crop & save", "Save", "Done", "ครอบตัดและบันทึก", "บันทึก", "เสร็จสิ้น"},
		},
		Generation: Generation{
			AddToPromptTriggers: []string{"Add to prompt", "Add to Prompt", "เพิ่มลงในพรอมต์", "เพิ่มในพรอมต์"},
			VideoTabTriggers:    []string{"Videos", "Video", "วิดีโอ"},
		},
	}
}

// Clone возвращает глубокую копию: снимок таблицы не должен меняться во время запуска.
func (c Config) Clone() Config {
	return Config{
		Dashboard: Dashboard{
			NewProjectTriggers:  cloneList(c.Dashboard.NewProjectTriggers),
			WorkspaceIndicators: cloneList(c.Dashboard.WorkspaceIndicators),
		},
		Workspace: Workspace{
			ImageTabTriggers: cloneList(c.Workspace.ImageTabTriggers),
		},
		Upload: Upload{
			UploadButtonTriggers: cloneList(c.Upload.UploadButtonTriggers),
			CropSaveTriggers:     cloneList(c.Upload.CropSaveTriggers),
		},
		Generation: Generation{
			AddToPromptTriggers: cloneList(c.Generation.AddToPromptTriggers),
			VideoTabTriggers:    cloneList(c.Generation.VideoTabTriggers),
		},
	}
}

// Merge накладывает override поверх c: каждый непустой список заменяет список целиком.
func (c Config) Merge(override Config) Config {
	out := c.Clone()
	replace(&out.Dashboard.NewProjectTriggers, override.Dashboard.NewProjectTriggers)
	replace(&out.Dashboard.WorkspaceIndicators, override.Dashboard.WorkspaceIndicators)
	replace(&out.Workspace.ImageTabTriggers, override.Workspace.ImageTabTriggers)
	replace(&out.Upload.UploadButtonTriggers, override.Upload.UploadButtonTriggers)
	replace(&out.Upload.CropSaveTriggers, override.Upload.CropSaveTriggers)
	replace(&out.Generation.AddToPromptTriggers, override.Generation.AddToPromptTriggers)
	replace(&out.Generation.VideoTabTriggers, override.Generation.VideoTabTriggers)
	return out
}

// IsEmpty - в override нет ни одного известного списка (чужая схема).
func (c Config) IsEmpty() bool {
	return len(c.Dashboard.NewProjectTriggers) == 0 &&
		len(c.Dashboard.WorkspaceIndicators) == 0 &&
		len(c.Workspace.ImageTabTriggers) == 0 &&
		len(c.Upload.UploadButtonTriggers) == 0 &&
		len(c.Upload.CropSaveTriggers) == 0 &&
		len(c.Generation.AddToPromptTriggers) == 0 &&
		len(c.Generation.VideoTabTriggers) == 0
}

var ErrMissingTriggers = errors.New("пустой список обязательных триггеров")

// Validate проверяет списки обязательных шагов. Пустые необязательные списки
// (upload, crop, индикаторы рабочей области) лишь ослабляют свой шаг.
func (c Config) Validate() error {
	required := map[string][]string{
		"dashboard.newProjectTriggers":   c.Dashboard.NewProjectTriggers,
		"workspace.imageTabTriggers":     c.Workspace.ImageTabTriggers,
		"generation.addToPromptTriggers": c.Generation.AddToPromptTriggers,
		"generation.videoTabTriggers":    c.Generation.VideoTabTriggers,
	}
	var missing []string
	for name, list := range required {
		if len(list) == 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingTriggers, strings.Join(missing, ", "))
	}
	return nil
}

func cloneList(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func replace(dst *[]string, src []string) {
	var cleaned []string
	for _, s := range src {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) > 0 {
		*dst = cleaned
	}
}
