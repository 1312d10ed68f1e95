package editor

// 内置占位默认值。加载到已保存草稿时会被逐节覆盖，
// 草稿缺失的小节保持这些默认值。

func defaultFormData() FormData {
	return FormData{
		Fullname:            "Karen Richards",
		ProfessionalTitle:   "Professional Title",
		PersonalDescription: "Lorem ipsum dolor sit, amet consectetur adipisicing elit. Alia minus est culpa id corrupti nobis ullam harum, porro veniam facilis, obcaecati nulla magnam beatae quae at eos! Qui, similique laboriosam?",
		RefererName:         "Sara Taylore",
		RefererRole:         "Director | Company Name",
		Mobile:              "+91 0000-0000",
		Email:               "urname@gmail.com",
		Website:             "urwebsite.com",
		Address:             "your street address, ss, street, city/zip code - 1234",
	}
}

func defaultEducationEntry() Education {
	return Education{
		Major:      "ENTER YOUR MAJOR",
		University: "Name of your university / college 2005-2009",
	}
}

func defaultEducation() []Education {
	return []Education{defaultEducationEntry()}
}

func defaultExperienceEntry() Experience {
	return Experience{
		Year:               "2012 - 2014",
		Title:              "Job Position Here",
		CompanyAndLocation: "Company Name / Location here",
		Description:        "Lorem ipsum dolor sit amet, consectetur adipisicing elit. Corporis voluptatibus minima tenetur nostrum quo aliquam dolorum incidunt.",
	}
}

func defaultExperiences() []Experience {
	return []Experience{
		defaultExperienceEntry(),
		defaultExperienceEntry(),
		defaultExperienceEntry(),
	}
}

func defaultSkillEntry() Skill {
	return Skill{Title: "skill1", Percentage: "75"}
}

func defaultSkills() []Skill {
	return []Skill{
		{Title: "skill1", Percentage: "75"},
		{Title: "skill2", Percentage: "75"},
		{Title: "skill3", Percentage: "75"},
		{Title: "skill4", Percentage: "75"},
		{Title: "skill5", Percentage: "75"},
	}
}
