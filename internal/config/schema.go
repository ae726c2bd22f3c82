package config

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/querycore/internal/model"
)

// BuildSchema turns the model definitions into a linked, validated schema.
func BuildSchema(defs []*ModelDefinition) (*model.Schema, error) {
	models := make([]*model.Model, 0, len(defs))
	for _, def := range defs {
		fields := make([]model.Field, 0, len(def.Fields))
		for _, fd := range def.Fields {
			f, err := buildField(def.Name, fd)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}

		m := model.NewModel(def.Name, fields...)
		if len(def.ID) > 0 {
			m.WithID(def.ID...)
		}
		for _, u := range def.Uniques {
			m.WithUnique(u...)
		}
		models = append(models, m)
	}

	s, err := model.NewSchema(models...)
	if err != nil {
		return nil, fmt.Errorf("building schema: %w", err)
	}
	return s, nil
}

func buildField(owner string, fd *FieldDefinition) (model.Field, error) {
	var attrs []model.Attribute
	if fd.List {
		attrs = append(attrs, model.List())
	} else if !fd.Optional {
		attrs = append(attrs, model.Required())
	}

	typ, scalar := model.TypeByName(fd.Type)
	if !scalar {
		if fd.ID || fd.Unique || fd.AutoGenerated || fd.Default != nil || fd.Column != "" {
			return nil, fmt.Errorf("%w: relation field %s.%s cannot carry scalar attributes",
				model.ErrInvalidSchema, owner, fd.Name)
		}
		if len(fd.Fields) > 0 {
			attrs = append(attrs, model.Inline(fd.Fields, fd.References...))
		}
		name := fd.Relation
		if name == "" {
			name = relationName(owner, fd.Type)
		}
		return model.Relation(fd.Name, name, fd.Type, attrs...), nil
	}

	if len(fd.Fields) > 0 || len(fd.References) > 0 || fd.Relation != "" {
		return nil, fmt.Errorf("%w: scalar field %s.%s cannot carry relation attributes",
			model.ErrInvalidSchema, owner, fd.Name)
	}
	if fd.ID {
		attrs = append(attrs, model.ID())
	}
	if fd.Unique {
		attrs = append(attrs, model.Unique())
	}
	if fd.AutoGenerated {
		attrs = append(attrs, model.AutoGenerated())
	}
	if fd.Default != nil {
		attrs = append(attrs, model.Default(*fd.Default))
	}
	if fd.Column != "" {
		attrs = append(attrs, model.MappedTo(fd.Column))
	}
	return model.Scalar(fd.Name, typ, attrs...), nil
}

// relationName derives the name of an unnamed relation from the model names
// in alphabetical order, so both sides agree on it: "PostToUser".
func relationName(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return names[0] + "To" + names[1]
}
