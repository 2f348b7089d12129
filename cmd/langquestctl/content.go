package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/langquest/langquest-core/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT DOCUMENT
// A YAML course file: course → units → lessons → challenges → options.
// Orders may be omitted and then follow document order.
// ══════════════════════════════════════════════════════════════════════════════

type courseDoc struct {
	Title    string    `yaml:"title"`
	ImageSrc string    `yaml:"image_src"`
	Units    []unitDoc `yaml:"units"`
}

type unitDoc struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Order       int         `yaml:"order"`
	Lessons     []lessonDoc `yaml:"lessons"`
}

type lessonDoc struct {
	Title      string         `yaml:"title"`
	Order      int            `yaml:"order"`
	Challenges []challengeDoc `yaml:"challenges"`
}

type challengeDoc struct {
	Type     string      `yaml:"type"`
	Question string      `yaml:"question"`
	Order    int         `yaml:"order"`
	Options  []optionDoc `yaml:"options"`
}

type optionDoc struct {
	Text     string `yaml:"text"`
	Correct  bool   `yaml:"correct"`
	ImageSrc string `yaml:"image_src"`
	AudioSrc string `yaml:"audio_src"`
}

// parseCourse decodes one course document and validates the resulting tree.
// Unknown keys are rejected so typos do not silently drop content.
func parseCourse(r io.Reader) (*course.CourseTree, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc courseDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("content file is empty")
		}
		return nil, fmt.Errorf("decode content: %w", err)
	}

	tree := doc.toTree()
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	return tree, nil
}

func (d courseDoc) toTree() *course.CourseTree {
	tree := &course.CourseTree{
		Course: course.Course{Title: strings.TrimSpace(d.Title), ImageSrc: d.ImageSrc},
		Units:  make([]*course.Unit, 0, len(d.Units)),
	}

	for i, u := range d.Units {
		unit := &course.Unit{
			Title:       u.Title,
			Description: u.Description,
			Order:       orderOr(u.Order, i),
			Lessons:     make([]*course.Lesson, 0, len(u.Lessons)),
		}
		for j, l := range u.Lessons {
			lesson := &course.Lesson{
				Title:      l.Title,
				Order:      orderOr(l.Order, j),
				Challenges: make([]*course.Challenge, 0, len(l.Challenges)),
			}
			for k, c := range l.Challenges {
				challenge := &course.Challenge{
					Type:     course.ChallengeType(strings.ToUpper(c.Type)),
					Question: c.Question,
					Order:    orderOr(c.Order, k),
					Options:  make([]*course.ChallengeOption, 0, len(c.Options)),
				}
				for _, o := range c.Options {
					challenge.Options = append(challenge.Options, &course.ChallengeOption{
						Text:     o.Text,
						Correct:  o.Correct,
						ImageSrc: o.ImageSrc,
						AudioSrc: o.AudioSrc,
					})
				}
				lesson.Challenges = append(lesson.Challenges, challenge)
			}
			unit.Lessons = append(unit.Lessons, lesson)
		}
		tree.Units = append(tree.Units, unit)
	}
	return tree
}

func orderOr(order, index int) int {
	if order > 0 {
		return order
	}
	return index + 1
}

// treeStats counts the content in a tree.
type treeStats struct {
	Units, Lessons, Challenges, Options int
}

func statsOf(tree *course.CourseTree) treeStats {
	var s treeStats
	for _, u := range tree.Units {
		s.Units++
		for _, l := range u.Lessons {
			s.Lessons++
			for _, c := range l.Challenges {
				s.Challenges++
				s.Options += len(c.Options)
			}
		}
	}
	return s
}
