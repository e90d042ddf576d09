package domain

import "time"

// DemoTeacherID is the author placeholder used when no session author is configured.
const DemoTeacherID = "demo_teacher_1"

// SampleCourses is the built-in course set used to seed an empty or corrupted store.
func SampleCourses() []Course {
	return []Course{
		{ID: "course_eco_101", Name: "Environmental Science 101", Code: "ECO101"},
		{ID: "course_eco_102", Name: "Climate Change Studies", Code: "ECO102"},
		{ID: "course_eco_201", Name: "Sustainable Development", Code: "ECO201"},
		{ID: "course_bio_101", Name: "Biology Fundamentals", Code: "BIO101"},
	}
}

// SampleQuizzes is the built-in quiz set seeded in demo mode.
func SampleQuizzes() []Quiz {
	fifteen, twenty := 15, 20
	return []Quiz{
		{
			ID:               "quiz_climate_basics",
			Title:            "Climate Change Basics",
			Description:      "Understanding the fundamentals of climate change and its impact",
			CourseID:         "course_eco_101",
			TeacherID:        DemoTeacherID,
			Status:           StatusPublished,
			TimeLimitMinutes: &fifteen,
			Questions: []Question{
				{
					ID:     "q_climate_1",
					Type:   TypeMCQ,
					Prompt: "What is the primary cause of current climate change?",
					Options: []Option{
						{ID: "o1", Text: "Natural climate cycles"},
						{ID: "o2", Text: "Human activities and greenhouse gas emissions", Correct: true},
						{ID: "o3", Text: "Solar radiation changes"},
						{ID: "o4", Text: "Volcanic activity"},
					},
					Points:      10,
					Explanation: "Human activities, particularly burning fossil fuels, are the primary driver of current climate change.",
				},
				{
					ID:     "q_climate_2",
					Type:   TypeTrueFalse,
					Prompt: "CO2 levels in the atmosphere are at their highest in human history.",
					Options: []Option{
						{ID: "t1", Text: "True", Correct: true},
						{ID: "f1", Text: "False"},
					},
					Points:      5,
					Explanation: "CO2 levels have reached over 410 ppm, the highest in over 800,000 years.",
				},
			},
			CreatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:               "quiz_renewable_energy",
			Title:            "Renewable Energy Sources",
			Description:      "Exploring different types of renewable energy and their benefits",
			CourseID:         "course_eco_102",
			TeacherID:        DemoTeacherID,
			Status:           StatusDraft,
			TimeLimitMinutes: &twenty,
			Questions: []Question{
				{
					ID:     "q_renewable_1",
					Type:   TypeMulti,
					Prompt: "Which of the following are renewable energy sources? (Select all that apply)",
					Options: []Option{
						{ID: "r1", Text: "Solar power", Correct: true},
						{ID: "r2", Text: "Wind power", Correct: true},
						{ID: "r3", Text: "Coal"},
						{ID: "r4", Text: "Hydroelectric power", Correct: true},
						{ID: "r5", Text: "Natural gas"},
					},
					Points:      15,
					Explanation: "Solar, wind, and hydroelectric are all renewable sources that naturally replenish.",
				},
			},
			CreatedAt: time.Date(2024, 1, 10, 14, 30, 0, 0, time.UTC),
			UpdatedAt: time.Date(2024, 1, 12, 9, 15, 0, 0, time.UTC),
		},
	}
}
