package advisor

import (
	"fmt"
	"strings"

	"github.com/sells-group/health-advisor/internal/model"
)

// SystemPrompt is the shared instruction sent as a cached system block.
const SystemPrompt = `You are a health insurance advisor for customers in India. You give objective, practical guidance grounded in the policy data you are given, and you mention relevant IRDAI regulations where they matter. When asked for JSON, respond with a single JSON object and nothing else.`

const recommendationTemplate = `As a health insurance advisor, recommend the best health insurance policies based on the following user profile:

USER PROFILE:
%s

AVAILABLE INSURANCE POLICIES:
%s

Please recommend the top 3 most suitable insurance policies for this user. For each recommendation, provide:
1. Insurance company name
2. Policy name
3. Why this is suitable for the user
4. Key benefits
5. Any limitations or considerations
6. Approximate premium estimate based on the user profile

Format your response as a structured JSON with these fields:
{
    "recommendations": [
        {
            "rank": 1,
            "company": "Company name",
            "policy": "Policy name",
            "suitability_reason": "Why this is suitable",
            "key_benefits": ["benefit1", "benefit2", "benefit3"],
            "limitations": ["limitation1", "limitation2"],
            "premium_estimate": "Estimated premium range"
        }
    ]
}`

const comparisonTemplate = `Compare the following health insurance policies objectively:

%s

Please provide a detailed comparison including:
1. Premium cost comparison
2. Coverage benefits comparison
3. Waiting periods comparison
4. Special features comparison
5. Pros and cons of each policy
6. Which policy might be better for different types of users

Format your response in a clear, structured way with headings and bullet points.`

const questionTemplate = `As a health insurance expert, please answer the following question about health insurance:

Question: %s

Provide a detailed, accurate, and helpful answer based on your knowledge of health insurance in India.
Include relevant facts, regulations, and practical advice where appropriate.`

// BuildRecommendationPrompt embeds the set profile fields and the policy
// database, serialized as YAML.
func BuildRecommendationPrompt(profile model.UserProfile, databaseYAML string) string {
	return fmt.Sprintf(recommendationTemplate,
		strings.Join(profile.Lines(), "\n"),
		strings.TrimSpace(databaseYAML),
	)
}

// BuildComparisonPrompt embeds the selected policies' serialized records.
func BuildComparisonPrompt(detailsYAML string) string {
	return fmt.Sprintf(comparisonTemplate, strings.TrimSpace(detailsYAML))
}

// BuildQuestionPrompt embeds a single free-text question.
func BuildQuestionPrompt(question string) string {
	return fmt.Sprintf(questionTemplate, strings.TrimSpace(question))
}
