package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"resumecraft/internal/database"
)

// Document 是版式模板的输入：草稿各小节的纯文本视图。
type Document struct {
	Fullname            string
	ProfessionalTitle   string
	PersonalDescription string
	RefererName         string
	RefererRole         string
	Mobile              string
	Email               string
	Website             string
	Address             string
	PhotoDataURL        string
	Education           []EducationItem
	Experience          []ExperienceItem
	Skills              []SkillItem
}

// EducationItem 对应一条教育经历。
type EducationItem struct {
	Major      string
	University string
}

// ExperienceItem 对应一条工作经历。
type ExperienceItem struct {
	Year               string
	Title              string
	CompanyAndLocation string
	Description        string
}

// SkillItem 对应一条技能；Percentage 以文本存储，渲染时直接作宽度用。
type SkillItem struct {
	Title      string
	Percentage string
}

// DocumentFromDraft 解码存储文档的 JSON 小节，生成渲染输入。
func DocumentFromDraft(draft *database.ResumeDraft) (Document, error) {
	var doc Document

	if len(draft.FormData) > 0 {
		var form struct {
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
		if err := json.Unmarshal(draft.FormData, &form); err != nil {
			return Document{}, fmt.Errorf("decode form data: %w", err)
		}
		doc.Fullname = form.Fullname
		doc.ProfessionalTitle = form.ProfessionalTitle
		doc.PersonalDescription = form.PersonalDescription
		doc.RefererName = form.RefererName
		doc.RefererRole = form.RefererRole
		doc.Mobile = form.Mobile
		doc.Email = form.Email
		doc.Website = form.Website
		doc.Address = form.Address
	}

	if len(draft.Education) > 0 {
		var items []struct {
			Major      string `json:"major"`
			University string `json:"university"`
		}
		if err := json.Unmarshal(draft.Education, &items); err != nil {
			return Document{}, fmt.Errorf("decode education: %w", err)
		}
		for _, it := range items {
			doc.Education = append(doc.Education, EducationItem(it))
		}
	}

	if len(draft.Experiences) > 0 {
		var items []struct {
			Year               string `json:"year"`
			Title              string `json:"title"`
			CompanyAndLocation string `json:"companyAndLocation"`
			Description        string `json:"description"`
		}
		if err := json.Unmarshal(draft.Experiences, &items); err != nil {
			return Document{}, fmt.Errorf("decode experiences: %w", err)
		}
		for _, it := range items {
			doc.Experience = append(doc.Experience, ExperienceItem(it))
		}
	}

	if len(draft.Skills) > 0 {
		var items []struct {
			Title      string `json:"title"`
			Percentage string `json:"percentage"`
		}
		if err := json.Unmarshal(draft.Skills, &items); err != nil {
			return Document{}, fmt.Errorf("decode skills: %w", err)
		}
		for _, it := range items {
			doc.Skills = append(doc.Skills, SkillItem(it))
		}
	}

	doc.PhotoDataURL = draft.UserProfilePic
	return doc, nil
}

// layoutTemplateString 是草稿版式的 HTML 模板。
// 页面尺寸必须与 A4 @ 96 DPI 匹配（794x1122），导出才能对齐页边。
const layoutTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: 'Helvetica', 'Arial', sans-serif;
            background: white;
        }
        .a4-page {
            width: 794px;  /* A4 @ 96 DPI */
            height: 1122px;
            background: white;
            display: flex;
            box-sizing: border-box;
        }
        .sidebar {
            width: 33%;
            background: #1c2833;
            color: #eaecee;
            padding: 28px 22px;
            box-sizing: border-box;
        }
        .main {
            width: 67%;
            padding: 36px 30px;
            box-sizing: border-box;
            color: #1c2833;
        }
        .photo {
            width: 120px;
            height: 120px;
            border-radius: 50%;
            object-fit: cover;
            display: block;
            margin: 0 auto 20px;
        }
        .sidebar h3 {
            text-transform: uppercase;
            letter-spacing: 2px;
            border-bottom: 1px solid #566573;
            padding-bottom: 6px;
            font-size: 13px;
        }
        .sidebar p { font-size: 11px; margin: 4px 0; }
        .fullname { font-size: 30px; margin: 0; text-transform: uppercase; }
        .title { font-size: 14px; color: #566573; margin: 4px 0 18px; }
        .section { margin-bottom: 20px; }
        .section h2 {
            font-size: 15px;
            text-transform: uppercase;
            letter-spacing: 2px;
            border-bottom: 2px solid #1c2833;
            padding-bottom: 4px;
        }
        .entry { margin-bottom: 12px; }
        .entry .year { font-size: 11px; color: #566573; }
        .entry .role { font-size: 13px; font-weight: bold; margin: 2px 0; }
        .entry .company { font-size: 11px; font-style: italic; }
        .entry .desc { font-size: 11px; margin: 4px 0 0; }
        .skill { margin-bottom: 8px; }
        .skill .label { font-size: 11px; margin-bottom: 2px; }
        .skill .bar { background: #566573; height: 5px; width: 100%; }
        .skill .fill { background: #eaecee; height: 5px; }
        .referer { font-size: 11px; }
    </style>
</head>
<body>
<div class="a4-page" id="a4-container">
    <div class="sidebar">
        {{if .PhotoDataURL}}<img class="photo" src="{{.PhotoDataURL}}" alt="" />{{end}}
        <h3>Contact</h3>
        <p>{{.Mobile}}</p>
        <p>{{.Email}}</p>
        <p>{{.Website}}</p>
        <p>{{.Address}}</p>
        <h3>Education</h3>
        {{range .Education}}
        <p><strong>{{.Major}}</strong><br/>{{.University}}</p>
        {{end}}
        <h3>Skills</h3>
        {{range .Skills}}
        <div class="skill">
            <div class="label">{{.Title}}</div>
            <div class="bar"><div class="fill" style="width: {{.Percentage}}%"></div></div>
        </div>
        {{end}}
    </div>
    <div class="main">
        <h1 class="fullname">{{.Fullname}}</h1>
        <div class="title">{{.ProfessionalTitle}}</div>
        <div class="section">
            <h2>About Me</h2>
            <p class="desc">{{.PersonalDescription}}</p>
        </div>
        <div class="section">
            <h2>Work Experience</h2>
            {{range .Experience}}
            <div class="entry">
                <div class="year">{{.Year}}</div>
                <div class="role">{{.Title}}</div>
                <div class="company">{{.CompanyAndLocation}}</div>
                <p class="desc">{{.Description}}</p>
            </div>
            {{end}}
        </div>
        <div class="section">
            <h2>Reference</h2>
            <p class="referer"><strong>{{.RefererName}}</strong><br/>{{.RefererRole}}</p>
        </div>
    </div>
</div>
</body>
</html>`

var layoutTemplate = template.Must(template.New("resume").Parse(layoutTemplateString))

// DraftHTML 把草稿视图渲染为完整的版式 HTML。
func DraftHTML(doc Document) string {
	var buf bytes.Buffer
	// 模板编译期已校验，对纯数据输入执行不会失败
	_ = layoutTemplate.Execute(&buf, doc)
	return buf.String()
}
