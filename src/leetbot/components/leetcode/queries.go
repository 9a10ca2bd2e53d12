package leetcode

// GraphQL documents mirroring what the leetcode.com web client sends.

const questionQuery = `query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    questionId
    questionFrontendId
    title
    titleSlug
    acRate
    difficulty
    likes
    dislikes
    content
    similarQuestions
    isPaidOnly
    status
    hasVideoSolution
    hasSolution
    topicTags {
      name
      id
      slug
    }
  }
}`

const dailyChallengeQuery = `query questionOfToday {
  activeDailyCodingChallengeQuestion {
    date
    userStatus
    link
    question {
      questionId
      questionFrontendId
      title
      titleSlug
      acRate
      difficulty
      likes
      dislikes
      content
      similarQuestions
      isPaidOnly
      status
      hasVideoSolution
      hasSolution
      topicTags {
        name
        id
        slug
      }
    }
  }
}`

const submissionQuery = `query submissionDetails($submissionIntId: Int!, $submissionId: ID!) {
  submissionDetails(submissionId: $submissionIntId) {
    runtime
    runtimeDisplay
    runtimePercentile
    memory
    memoryDisplay
    memoryPercentile
    code
    timestamp
    statusCode
    user {
      username
      profile {
        realName
        userAvatar
      }
    }
    lang {
      name
      verboseName
    }
    question {
      questionFrontendId
      title
      titleSlug
      difficulty
      isPaidOnly
    }
    notes
    topicTags {
      tagId
      slug
      name
    }
    runtimeError
    compileError
    lastTestcase
  }
  submissionComplexity(submissionId: $submissionId) {
    timeComplexity {
      complexity
      displayName
      funcStr
      vote
    }
    memoryComplexity {
      complexity
      displayName
      funcStr
      vote
    }
    isLimited
  }
}`
