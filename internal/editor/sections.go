package editor

import "fmt"

// FormData 是草稿的扁平表单记录，字段名与存储文档保持一致。
type FormData struct {
	Fullname            string `json:"fullname"`
	ProfessionalTitle   string `json:"professionalTitle"`
	PersonalDescription string `json:"personalDescription"`
	RefererName         string `json:"refererName"`
	RefererRole         string `json:"refererRole"`
	Mobile              string `json:"mobile"`
	Email               string `json:"email"`
	Website             string `json:"website"`
	Address             string `json:"address"`
}

// Education 是教育经历条目。
type Education struct {
	Major      string `json:"major"`
	University string `json:"university"`
}

// Experience 是工作经历条目。
type Experience struct {
	Year               string `json:"year"`
	Title              string `json:"title"`
	CompanyAndLocation string `json:"companyAndLocation"`
	Description        string `json:"description"`
}

// Skill 是技能条目；百分比以文本存储。
type Skill struct {
	Title      string `json:"title"`
	Percentage string `json:"percentage"`
}

// 字段更新使用按记录类型显式枚举的标签变体，而不是按名字反射，
// 以保留类型安全。

// FormField 标识 FormData 中的一个可编辑字段。
type FormField int

const (
	FormFullname FormField = iota
	FormProfessionalTitle
	FormPersonalDescription
	FormRefererName
	FormRefererRole
	FormMobile
	FormEmail
	FormWebsite
	FormAddress
)

// EducationField 标识 Education 条目中的一个可编辑字段。
type EducationField int

const (
	EducationMajor EducationField = iota
	EducationUniversity
)

// ExperienceField 标识 Experience 条目中的一个可编辑字段。
type ExperienceField int

const (
	ExperienceYear ExperienceField = iota
	ExperienceTitle
	ExperienceCompanyAndLocation
	ExperienceDescription
)

// SkillField 标识 Skill 条目中的一个可编辑字段。
type SkillField int

const (
	SkillTitle SkillField = iota
	SkillPercentage
)

// SetFormField 更新表单中的单个字段。
func (e *Editor) SetFormField(field FormField, value string) error {
	form := e.form
	switch field {
	case FormFullname:
		form.Fullname = value
	case FormProfessionalTitle:
		form.ProfessionalTitle = value
	case FormPersonalDescription:
		form.PersonalDescription = value
	case FormRefererName:
		form.RefererName = value
	case FormRefererRole:
		form.RefererRole = value
	case FormMobile:
		form.Mobile = value
	case FormEmail:
		form.Email = value
	case FormWebsite:
		form.Website = value
	case FormAddress:
		form.Address = value
	default:
		return fmt.Errorf("unknown form field %d", field)
	}
	e.form = form
	return nil
}

// AddEducation 追加一条默认教育经历。
func (e *Editor) AddEducation() {
	e.education = append(cloneSlice(e.education), defaultEducationEntry())
}

// RemoveEducation 按下标移除教育经历；越界是调用方错误。
func (e *Editor) RemoveEducation(index int) error {
	next, err := removeAt(e.education, index)
	if err != nil {
		return err
	}
	e.education = next
	return nil
}

// UpdateEducation 更新指定下标条目的单个字段。
func (e *Editor) UpdateEducation(index int, field EducationField, value string) error {
	if index < 0 || index >= len(e.education) {
		return fmt.Errorf("education index %d out of range", index)
	}
	next := cloneSlice(e.education)
	switch field {
	case EducationMajor:
		next[index].Major = value
	case EducationUniversity:
		next[index].University = value
	default:
		return fmt.Errorf("unknown education field %d", field)
	}
	e.education = next
	return nil
}

// AddExperience 追加一条默认工作经历。
func (e *Editor) AddExperience() {
	e.experiences = append(cloneSlice(e.experiences), defaultExperienceEntry())
}

// RemoveExperience 按下标移除工作经历；越界是调用方错误。
func (e *Editor) RemoveExperience(index int) error {
	next, err := removeAt(e.experiences, index)
	if err != nil {
		return err
	}
	e.experiences = next
	return nil
}

// UpdateExperience 更新指定下标条目的单个字段。
func (e *Editor) UpdateExperience(index int, field ExperienceField, value string) error {
	if index < 0 || index >= len(e.experiences) {
		return fmt.Errorf("experience index %d out of range", index)
	}
	next := cloneSlice(e.experiences)
	switch field {
	case ExperienceYear:
		next[index].Year = value
	case ExperienceTitle:
		next[index].Title = value
	case ExperienceCompanyAndLocation:
		next[index].CompanyAndLocation = value
	case ExperienceDescription:
		next[index].Description = value
	default:
		return fmt.Errorf("unknown experience field %d", field)
	}
	e.experiences = next
	return nil
}

// AddSkill 追加一条默认技能。
func (e *Editor) AddSkill() {
	e.skills = append(cloneSlice(e.skills), defaultSkillEntry())
}

// RemoveSkill 按下标移除技能；越界是调用方错误。
func (e *Editor) RemoveSkill(index int) error {
	next, err := removeAt(e.skills, index)
	if err != nil {
		return err
	}
	e.skills = next
	return nil
}

// UpdateSkill 更新指定下标条目的单个字段。
func (e *Editor) UpdateSkill(index int, field SkillField, value string) error {
	if index < 0 || index >= len(e.skills) {
		return fmt.Errorf("skill index %d out of range", index)
	}
	next := cloneSlice(e.skills)
	switch field {
	case SkillTitle:
		next[index].Title = value
	case SkillPercentage:
		next[index].Percentage = value
	default:
		return fmt.Errorf("unknown skill field %d", field)
	}
	e.skills = next
	return nil
}

// 列表修改先克隆再整体替换，读者不可能看到半完成的更新。
func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func removeAt[T any](in []T, index int) ([]T, error) {
	if index < 0 || index >= len(in) {
		return nil, fmt.Errorf("index %d out of range (len %d)", index, len(in))
	}
	out := make([]T, 0, len(in)-1)
	out = append(out, in[:index]...)
	out = append(out, in[index+1:]...)
	return out, nil
}
