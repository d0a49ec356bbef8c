package personalize

import (
	"fmt"
	"strings"
)

const systemFactual = `You are an assistant that tailors CVs and cover letters.
You must only use facts present in the candidate profile you are given.
Never invent employers, dates, titles, skills, certifications or achievements.`

func analyzeJobPrompt(description string) string {
	return fmt.Sprintf(`Analyze the following job posting and respond with ONLY a JSON object,
no commentary, with exactly these keys:
  "required_skills": list of strings,
  "nice_to_have": list of strings,
  "seniority": string,
  "keywords": list of strings,
  "summary": one-sentence string.

Job posting:
%s`, description)
}

func matchScorePrompt(profileText, analysisSummary, description string) string {
	return fmt.Sprintf(`Rate how well this candidate matches the job on a scale of 0 to 100.
Respond with ONLY the number, optionally followed by a percent sign.

Candidate profile:
%s

Job summary: %s

Job posting:
%s`, profileText, analysisSummary, description)
}

func summaryPrompt(profileText, description string) string {
	return fmt.Sprintf(`Write a professional summary (3-4 sentences, first person omitted) for this
candidate, tailored to the job below. Use only facts from the profile.
Respond with the summary text only.

Candidate profile:
%s

Job posting:
%s`, profileText, description)
}

func reorderExperiencePrompt(experiences []string, description string) string {
	var b strings.Builder
	for i, e := range experiences {
		fmt.Fprintf(&b, "%d: %s\n", i, e)
	}
	return fmt.Sprintf(`Given the candidate's experience entries below (index: description) and the
job posting, respond with ONLY a JSON array of the indexes reordered from most
to least relevant for this job. Include every index exactly once.

Experience entries:
%s
Job posting:
%s`, b.String(), description)
}

func filterSkillsPrompt(skills []string, description string) string {
	return fmt.Sprintf(`From the candidate's skill list below, select and order the ones most
relevant to the job posting. Respond with ONLY a JSON array of skill names
taken verbatim from the list. Do not add skills that are not in the list.

Skills: %s

Job posting:
%s`, strings.Join(skills, ", "), description)
}

func coverLetterPrompt(profileText, company, title, description string) string {
	return fmt.Sprintf(`Write a concise cover letter body (3 paragraphs, no salutation header, no
signature block) for the position "%s" at %s. Ground every claim in the
candidate profile; never invent facts. Respond with the letter text only.

Candidate profile:
%s

Job posting:
%s`, title, company, profileText, description)
}
